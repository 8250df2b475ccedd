package services

import (
	app_errors "inkcloud/internal/errors"
)

// I18nError is an API error whose message is rendered in the client's language.
type I18nError struct {
	APIError  *app_errors.APIError
	MessageID string
	Template  map[string]any
}

// NewI18nError creates an error for base rendered from message id.
func NewI18nError(base *app_errors.APIError, messageID string, template map[string]any) *I18nError {
	return &I18nError{APIError: base, MessageID: messageID, Template: template}
}

// Error returns the message id.
func (e *I18nError) Error() string {
	return e.MessageID
}

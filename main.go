// Package main is the entry point of the inkCloud settings server.
package main

import (
	"inkcloud/internal/commands"
	"inkcloud/internal/container"
)

func main() {
	commands.Execute(container.BuildContainer)
}

package settings

import (
	"context"
	"strings"
)

// NormalizeEntries trims every entry, drops empty ones and removes duplicates keeping the
// first occurrence. The result is never nil.
func NormalizeEntries(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// AddEntries appends the normalized entries to a list-valued domain.
func AddEntries(ctx context.Context, s *Store[[]string], entries []string) error {
	add := NormalizeEntries(entries)
	if len(add) == 0 {
		return nil
	}
	return s.Update(ctx, func(current *[]string) {
		*current = NormalizeEntries(append(*current, add...))
	})
}

// RemoveEntries removes the normalized entries from a list-valued domain. Removing absent
// entries is a no-op.
func RemoveEntries(ctx context.Context, s *Store[[]string], entries []string) error {
	remove := NormalizeEntries(entries)
	if len(remove) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(remove))
	for _, entry := range remove {
		drop[entry] = struct{}{}
	}

	return s.Update(ctx, func(current *[]string) {
		kept := make([]string, 0, len(*current))
		for _, entry := range *current {
			if _, ok := drop[entry]; !ok {
				kept = append(kept, entry)
			}
		}
		*current = kept
	})
}

// Clear empties a list-valued domain.
func Clear(ctx context.Context, s *Store[[]string]) error {
	return s.Set(ctx, []string{})
}

package settings

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Group owns a fixed set of stores that are refreshed and closed together, such as the
// notifications config and the blacklist that share one dashboard page.
type Group struct {
	name   string
	stores []Controller
}

// NewGroup bundles stores under a name.
func NewGroup(name string, stores ...Controller) *Group {
	return &Group{name: name, stores: stores}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Stores returns the members of the group.
func (g *Group) Stores() []Controller {
	out := make([]Controller, len(g.stores))
	copy(out, g.stores)
	return out
}

// Refresh reloads every member concurrently and returns the first error. A failing member does
// not cancel the others.
func (g *Group) Refresh(ctx context.Context) error {
	var eg errgroup.Group
	for _, s := range g.stores {
		eg.Go(func() error {
			if err := s.Refresh(ctx); err != nil {
				return fmt.Errorf("%s: %w", s.Key(), err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Status folds the member statuses into one, with error taking precedence over activity.
func (g *Group) Status() Status {
	priority := map[Status]int{
		StatusIdle:    0,
		StatusSuccess: 1,
		StatusLoading: 2,
		StatusSaving:  3,
		StatusError:   4,
	}
	result := StatusIdle
	for _, s := range g.stores {
		if status := s.Status(); priority[status] > priority[result] {
			result = status
		}
	}
	return result
}

// Close closes every member.
func (g *Group) Close() {
	for _, s := range g.stores {
		s.Close()
	}
}

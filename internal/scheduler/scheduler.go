// Package scheduler keeps settings stores fresh: a repeating cron job and dashboard focus pings
// both trigger a guarded refresh of every registered store.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the background refresh period.
const DefaultInterval = 30 * time.Second

// tickTimeout bounds one round of refreshes.
const tickTimeout = 10 * time.Second

// Target is a store that can be refreshed unless it is saving.
type Target interface {
	Key() string
	RefreshIfIdle(ctx context.Context) (bool, error)
}

// Scheduler runs the background refresh.
type Scheduler struct {
	interval time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	targets []Target
	started bool
	stopped bool

	focus  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler refreshing every interval. A non-positive interval uses DefaultInterval.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		interval: interval,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(logrus.StandardLogger())),
			cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger())),
		)),
		focus:  make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds targets. It may be called before or after Start.
func (s *Scheduler) Register(targets ...Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, targets...)
}

// Interval returns the refresh period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start schedules the repeating job and the focus loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("scheduler already stopped")
	}
	if s.started {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runTick("interval") }); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.focusLoop()

	s.started = true
	logrus.WithField("interval", s.interval).Info("Settings refresh scheduler started")
	return nil
}

// Focus requests a refresh because the dashboard regained focus. It never blocks; bursts of
// focus events collapse into one refresh.
func (s *Scheduler) Focus() {
	select {
	case s.focus <- struct{}{}:
	default:
	}
}

func (s *Scheduler) focusLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.focus:
			s.runTick("focus")
		}
	}
}

func (s *Scheduler) runTick(trigger string) {
	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	refreshed, skipped := s.Tick(ctx)
	logrus.WithFields(logrus.Fields{
		"trigger":   trigger,
		"refreshed": refreshed,
		"skipped":   skipped,
	}).Debug("Settings refresh tick")
}

// Tick refreshes every target that is not saving and reports how many ran and were skipped.
func (s *Scheduler) Tick(ctx context.Context) (refreshed, skipped int) {
	s.mu.Lock()
	targets := append([]Target(nil), s.targets...)
	s.mu.Unlock()

	for _, target := range targets {
		if ctx.Err() != nil {
			return refreshed, skipped
		}
		ran, err := target.RefreshIfIdle(ctx)
		if !ran {
			skipped++
			continue
		}
		refreshed++
		if err != nil {
			logrus.WithError(err).WithField("key", target.Key()).Warn("Background settings refresh failed")
		}
	}
	return refreshed, skipped
}

// Stop cancels the job and the focus loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	s.cancel()
	if started {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	logrus.Info("Settings refresh scheduler stopped")
}

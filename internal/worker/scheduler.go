package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
)

// Sweeper is a cache that owns its eviction schedule.
type Sweeper interface {
	Sweep() int
	Interval() time.Duration
}

// Scheduler runs periodic maintenance off the request path.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel}
}

// Context is cancelled by Stop.
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// AddSweep sweeps c every c.Interval(). The first sweep waits one interval.
func (s *Scheduler) AddSweep(name string, c Sweeper) error {
	interval := c.Interval()
	if interval <= 0 {
		return errors.Errorf("sweep %s has no interval", name)
	}
	_, err := s.scheduler.Every(interval).Tag(name).WaitForSchedule().Do(func() {
		if n := c.Sweep(); n > 0 {
			log.Debug("Swept cache", zap.String("cache", name), zap.Int("evicted", n))
		}
	})
	return errors.Wrapf(err, "failed to schedule sweep %s", name)
}

// AddInterval runs fn every interval. Runs of one job never overlap.
func (s *Scheduler) AddInterval(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return errors.Errorf("job %s has no interval", name)
	}
	_, err := s.scheduler.Every(interval).Tag(name).WaitForSchedule().SingletonMode().Do(func() {
		if err := fn(s.ctx); err != nil {
			log.Warn("Scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	return errors.Wrapf(err, "failed to schedule %s", name)
}

func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.cancel()
}

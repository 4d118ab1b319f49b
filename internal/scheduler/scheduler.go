package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/services/auth"
	"github.com/go-co-op/gocron"
)

// Revalidator is the part of a session the revalidation job needs.
type Revalidator interface {
	IsAuthenticated() bool
	CurrentUser(ctx context.Context) (auth.User, error)
}

type Scheduler struct {
	Cron *gocron.Scheduler
	WG   *sync.WaitGroup
}

func New() (*Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		Cron: s,
		WG:   &sync.WaitGroup{},
	}, nil
}

// StartJob re-checks the session every interval. A rejected session is
// logged out by CurrentUser itself.
func (s *Scheduler) StartJob(ctx context.Context, interval time.Duration, session Revalidator) error {
	if interval <= 0 {
		return fmt.Errorf("invalid session check interval %s", interval)
	}

	_, err := s.Cron.Every(interval).SingletonMode().WaitForSchedule().Do(func() {
		s.runJob(ctx, session)
	})
	if err != nil {
		logger.Error("Failed to schedule job: %v", err)
		return err
	}

	s.Cron.StartAsync()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, session Revalidator) {
	s.WG.Add(1)
	defer s.WG.Done()

	if !session.IsAuthenticated() {
		logger.Debug("[scheduler] no session to revalidate")
		return
	}

	user, err := session.CurrentUser(ctx)
	if err != nil {
		logger.Error("[scheduler] session revalidation failed, logged out: %v", err)
		return
	}
	logger.Debug("[scheduler] session for %s is valid", user.Email)
}

func (s *Scheduler) RunImmediateJob(ctx context.Context, session Revalidator) {
	logger.Info("--- Session Revalidation Started ---")
	defer logger.Info("--- Session Revalidation Finished ---")

	s.runJob(ctx, session)
}

// Stop halts the schedule and waits for a running job.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.WG.Wait()
}

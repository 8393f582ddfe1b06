package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/recurring"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Scheduler periodically generates ledger entries from due recurring
// templates. Runs are serialized per user: a manual trigger that overlaps an
// automatic run for the same user is rejected with ErrRunInProgress.
type Scheduler struct {
	users     user.Service
	recurring recurring.Service
	interval  time.Duration
	notifyCh  chan struct{}

	mu      sync.Mutex
	running map[int]bool
}

func New(users user.Service, recurringService recurring.Service, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		users:     users,
		recurring: recurringService,
		interval:  interval,
		notifyCh:  make(chan struct{}, 1),
		running:   map[int]bool{},
	}
}

// Notify triggers an immediate sweep. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Infof("Scheduler started, processing recurring templates every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runAll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.runAll(ctx)
		case <-s.notifyCh:
			log.Debug("Scheduler triggered by notification")
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		log.Errorf("Failed to list users for recurring sweep: %v", err)
		return
	}

	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		result, err := s.RunCurrent(user.WithUser(ctx, u))
		if err != nil {
			if err == recurring.ErrRunInProgress {
				continue
			}
			log.Errorf("Recurring sweep failed for user %d: %v", u.Id, err)
			continue
		}
		if len(result.Generated) > 0 || len(result.Failures) > 0 {
			log.Infof("Recurring sweep for user %d: %d generated, %d failed",
				u.Id, len(result.Generated), len(result.Failures))
		}
	}
}

// RunCurrent processes due templates for the user on the context. Only one
// run per user at a time.
func (s *Scheduler) RunCurrent(ctx context.Context) (recurring.Result, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return recurring.Result{}, err
	}
	if !s.tryLock(userId) {
		return recurring.Result{}, recurring.ErrRunInProgress
	}
	defer s.unlock(userId)

	return s.recurring.ProcessDue(ctx)
}

func (s *Scheduler) tryLock(userId int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[userId] {
		return false
	}
	s.running[userId] = true
	return true
}

func (s *Scheduler) unlock(userId int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, userId)
}

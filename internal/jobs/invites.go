package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"messenger-service/internal/observability"
)

const inviteSweepJob = "invite_sweep"

// ExpiredInviteArchiver archives invites that expired or ran out of uses.
type ExpiredInviteArchiver interface {
	ArchiveExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}

// InviteSweeper archives dead invites on a cron schedule.
type InviteSweeper struct {
	invites ExpiredInviteArchiver
	cron    string
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

// NewInviteSweeper validates cron and constructs an InviteSweeper.
func NewInviteSweeper(invites ExpiredInviteArchiver, cron string) (*InviteSweeper, error) {
	if !gronx.New().IsValid(cron) {
		return nil, fmt.Errorf("invalid invite sweep cron %q", cron)
	}
	return &InviteSweeper{invites: invites, cron: cron, now: time.Now}, nil
}

// Start runs the schedule loop until ctx is cancelled.
func (s *InviteSweeper) Start(ctx context.Context) {
	log.Printf("invite sweeper scheduled cron=%q", s.cron)
	go s.loop(ctx)
}

func (s *InviteSweeper) loop(ctx context.Context) {
	for {
		next, err := s.NextRun(s.now())
		if err != nil {
			log.Printf("invite sweeper next tick failed cron=%q err=%v", s.cron, err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// NextRun returns the first tick strictly after from.
func (s *InviteSweeper) NextRun(from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.cron, from, false)
}

// RunOnce archives dead invites now. Overlapping runs are skipped.
func (s *InviteSweeper) RunOnce(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		observability.IncJobRun(inviteSweepJob, "skipped")
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	count, err := s.invites.ArchiveExpiredInvites(ctx, s.now())
	if err != nil {
		observability.IncJobRun(inviteSweepJob, "error")
		log.Printf("invite sweep failed err=%v", err)
		return 0, err
	}
	observability.IncJobRun(inviteSweepJob, "ok")
	if count > 0 {
		log.Printf("invite sweep archived count=%d", count)
	}
	return count, nil
}

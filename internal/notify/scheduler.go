package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule runs the sweep every morning at 08:00.
const DefaultSchedule = "0 8 * * *"

// Sweep outcomes reported to metrics.
const (
	SweepOK     = "ok"
	SweepFailed = "failed"
)

// readDocuments is the permission a user needs to be alerted at all.
const readDocuments = "documents:read"

// Scheduler runs the expiration sweep on a cron schedule.
type Scheduler struct {
	store    storage.Store
	sessions *session.Service
	checker  *Checker
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewScheduler creates a scheduler for spec, a standard five-field cron
// expression. An empty spec uses DefaultSchedule. Each user is swept under a
// background session from sessions.
func NewScheduler(
	store storage.Store, sessions *session.Service, checker *Checker,
	spec string, log logrus.FieldLogger, m *metrics.Metrics,
) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if spec == "" {
		spec = DefaultSchedule
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		store:    store,
		sessions: sessions,
		checker:  checker,
		log:      log,
		metrics:  m,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log)))),
	}

	s.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.WithError(err).Error("Expiration sweep failed")
		}
	}))

	return s, nil
}

// Start begins running the sweep on schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Start()
	s.log.WithField("next_run", s.cron.Entry(s.entryID).Next).Info("Expiration scheduler started")
}

// Stop stops the schedule. The returned context is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cron.Stop()
}

// Sweep checks every user against the documents they can see and returns
// the number of notifications sent. Users are never alerted about a
// document outside their accessible set, and users whose role cannot read
// documents are skipped.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	snap, err := storage.LoadSnapshot(ctx, s.store)
	if err != nil {
		s.metrics.Sweep(SweepFailed)

		return 0, fmt.Errorf("load snapshot: %w", err)
	}

	total, skipped := 0, 0

	for _, user := range snap.Users {
		if ctx.Err() != nil {
			s.metrics.Sweep(SweepFailed)

			return total, ctx.Err()
		}

		sess := s.sessions.ForUser(user)
		if !sess.Can(readDocuments) {
			skipped++

			continue
		}

		visible := acl.AccessibleDocuments(sess.User(), snap.Documents, snap.Categories, snap.Groups)
		total += len(s.checker.CheckExpiring(ctx, sess.User(), visible))
	}

	s.metrics.Sweep(SweepOK)
	s.log.WithFields(logrus.Fields{
		"users":         len(snap.Users),
		"skipped":       skipped,
		"notifications": total,
	}).Info("Expiration sweep finished")

	return total, nil
}

// Package audit writes the application's audit trail.
package audit

import (
	"context"
	"fmt"

	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/model"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/sirupsen/logrus"
)

// Event describes what happened to which record.
type Event struct {
	Action       model.AuditAction
	ResourceType model.ResourceType
	ResourceID   string
	ResourceName string
	Details      string
}

// Recorder appends audit entries to a store.
type Recorder struct {
	store storage.AuditStore
	log   logrus.FieldLogger
}

// NewRecorder creates a recorder. A nil log uses the standard logger.
func NewRecorder(store storage.AuditStore, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Recorder{store: store, log: log}
}

// Record appends an entry attributing ev to actor.
func (r *Recorder) Record(ctx context.Context, actor model.User, ev Event) (model.AuditLog, error) {
	entry, err := r.store.AppendAuditLog(ctx, model.AuditLog{
		Action:       ev.Action,
		UserID:       actor.ID,
		UserName:     actor.Name,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		ResourceName: ev.ResourceName,
		Details:      ev.Details,
	})

	fields := logrus.Fields{
		"action":        ev.Action,
		"user_id":       actor.ID,
		"resource_type": ev.ResourceType,
		"resource_id":   ev.ResourceID,
	}

	if err != nil {
		r.log.WithFields(fields).WithError(err).Error("Failed to record audit entry")

		return model.AuditLog{}, fmt.Errorf("record %s: %w", ev.Action, err)
	}

	r.log.WithFields(fields).Debug("Audit entry recorded")

	return entry, nil
}

// Login records a successful login by user.
func (r *Recorder) Login(ctx context.Context, user model.User) error {
	_, err := r.Record(ctx, user, Event{
		Action:       model.AuditLogin,
		ResourceType: model.ResourceAuth,
		ResourceID:   user.ID,
		ResourceName: user.Name,
	})

	return err
}

// Logout records user signing out.
func (r *Recorder) Logout(ctx context.Context, user model.User) error {
	_, err := r.Record(ctx, user, Event{
		Action:       model.AuditLogout,
		ResourceType: model.ResourceAuth,
		ResourceID:   user.ID,
		ResourceName: user.Name,
	})

	return err
}

// Document records action on document by actor.
func (r *Recorder) Document(ctx context.Context, actor model.User, action model.AuditAction, document model.Document) error {
	_, err := r.Record(ctx, actor, Event{
		Action:       action,
		ResourceType: model.ResourceDocument,
		ResourceID:   document.ID,
		ResourceName: document.Name,
	})

	return err
}

// List returns the entries viewer may see, newest first.
func (r *Recorder) List(ctx context.Context, checker *acl.Checker, viewer model.User) ([]model.AuditLog, error) {
	logs, err := r.store.ListAuditLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	return acl.AccessibleAuditLogs(checker, viewer, logs), nil
}

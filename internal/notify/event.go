// Package notify delivers the messages that document writes emit. A write
// produces an Event after it succeeds; a Notifier turns the event into a
// createMessage call without the write waiting on, or being affected by,
// the delivery.
package notify

import (
	"context"
	"time"

	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/docflow/docflow/portal/pkg/metrics"
	"github.com/google/uuid"
)

type Kind string

const (
	KindStatusChanged Kind = "document_status_changed"
	KindUploaded      Kind = "document_uploaded"
	KindRequested     Kind = "document_requested"
)

// Event describes one message to create.
type Event struct {
	ID         string    `json:"id" bson:"id"`
	Kind       Kind      `json:"kind" bson:"kind"`
	UserID     string    `json:"user_id" bson:"user_id"`
	IsPMID     bool      `json:"is_pm_id" bson:"is_pm_id"`
	ToFP       bool      `json:"to_fp" bson:"to_fp"`
	DocumentID string    `json:"doc_id" bson:"doc_id"`
	Reason     string    `json:"reason,omitempty" bson:"reason,omitempty"`
	At         time.Time `json:"at" bson:"at"`
}

// NewEvent stamps an id and time on an event.
func NewEvent(kind Kind, userID string, isPMID, toFP bool, docID, reason string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		IsPMID:     isPMID,
		ToFP:       toFP,
		DocumentID: docID,
		Reason:     reason,
		At:         time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Sender creates the message record for an event.
type Sender interface {
	CreateMessage(ctx context.Context, userID string, isPMID, toFP bool, docID, reason string) result.Write
}

// Deliver sends one event and records a failed outcome. It is the single
// delivery path shared by Direct and Dispatcher.
func Deliver(ctx context.Context, s Sender, failures FailureLog, ev Event) result.Write {
	w := s.CreateMessage(ctx, ev.UserID, ev.IsPMID, ev.ToFP, ev.DocumentID, ev.Reason)
	if w.OK() {
		metrics.Notifications.WithLabelValues("sent").Inc()
		return w
	}
	metrics.Notifications.WithLabelValues("failed").Inc()
	logger.With("kind", ev.Kind, "doc", ev.DocumentID, "tag", w.Tag).Warnf("notify: delivery failed: %v", w.Err)
	if failures != nil {
		f := Failure{Event: ev, Tag: string(w.Tag), At: time.Now().UTC()}
		if w.Err != nil {
			f.Error = w.Err.Error()
		}
		if err := failures.Record(ctx, f); err != nil {
			logger.Errorf("notify: record failure: %v", err)
		}
	}
	return w
}

// Direct delivers in the caller's goroutine. The CLI uses it, where the
// process would exit before a background queue drained.
type Direct struct {
	Sender   Sender
	Failures FailureLog
}

func (d Direct) Notify(ctx context.Context, ev Event) {
	Deliver(context.WithoutCancel(ctx), d.Sender, d.Failures, ev)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}

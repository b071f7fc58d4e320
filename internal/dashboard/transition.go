package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/logger"
)

var ErrUnknownDocument = errors.New("document is not on the loaded board")

// eventRole is who may fire each document event.
var eventRole = map[workflow.Event]workflow.Role{
	workflow.EventUpload:  workflow.RoleFieldPartner,
	workflow.EventApprove: workflow.RolePortfolioManager,
	workflow.EventReject:  workflow.RolePortfolioManager,
}

// WriteFunc performs the backend write for a checked move of doc.
type WriteFunc func(ctx context.Context, doc models.Document) result.Write

// Transition moves docID to `to`. The guard for the session and field
// partner is held while the move is checked against the stored board,
// written through write and recorded. A failed write is returned with a nil
// error and leaves the board unchanged.
func (s *Service) Transition(ctx context.Context, sessionID, fpID, docID string, to workflow.Status, write WriteFunc) (result.Write, error) {
	release, err := s.guard.Acquire(ctx, guardKey(sessionID, fpID))
	if err != nil {
		return result.Write{}, err
	}
	defer release()

	st, err := s.State(ctx, sessionID, fpID)
	if err != nil {
		return result.Write{}, err
	}
	doc, err := check(st, docID, to)
	if err != nil {
		return result.Write{}, err
	}
	w := write(ctx, doc)
	if !w.OK() {
		return w, nil
	}
	move(st.Documents, doc, to)
	if err := s.sessions.SaveState(ctx, sessionID, fpID, st); err != nil {
		logger.Warnf("dashboard: record %s -> %s for %s: %v", docID, to, fpID, err)
	}
	return w, nil
}

// check validates moving docID to `to`: the move must be legal from the
// column the document sits in and the board's role must fire that event.
func check(st *State, docID string, to workflow.Status) (models.Document, error) {
	doc, ok := st.Documents.Find(docID)
	if !ok {
		return models.Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	ev, err := workflow.EventFor(doc.Status, to)
	if err != nil {
		return doc, err
	}
	if eventRole[ev] != st.Role {
		return doc, fmt.Errorf("%w: %s cannot %s", ErrNotPermitted, st.Role, ev)
	}
	return doc, nil
}

// Moves lists the statuses role may move a document to from `from`.
func Moves(role workflow.Role, from workflow.Status) []workflow.Status {
	out := []workflow.Status{}
	for _, to := range workflow.Targets(from) {
		if ev, err := workflow.EventFor(from, to); err == nil && eventRole[ev] == role {
			out = append(out, to)
		}
	}
	return out
}

// move takes doc out of its column and appends it to `to`.
func move(d models.DocumentsByStatus, doc models.Document, to workflow.Status) {
	d[doc.Status] = without(d[doc.Status], doc.ID)
	doc.Status = to
	d[to] = append(d[to], doc)
}

func without(docs []models.Document, id string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

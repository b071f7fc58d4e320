package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/docflow/docflow/portal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBusy         = sessions.ErrBusy
	ErrNotPermitted = errors.New("action not permitted for this role")
	ErrNoState      = errors.New("dashboard not loaded")
	ErrNoOwner      = errors.New("field partner has no owning portfolio manager")
)

// DueDateLayout is how the due date is shown.
const DueDateLayout = "January 2, 2006"

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// State is the loaded board. It is a disposable copy of backend data.
type State struct {
	FPID         string                   `json:"fp_id"`
	Role         workflow.Role            `json:"role"`
	Phase        Phase                    `json:"phase"`
	Documents    models.DocumentsByStatus `json:"documents"`
	Messages     []models.Message         `json:"messages"`
	Instructions string                   `json:"instructions"`
	DueDate      string                   `json:"due_date"`
	PMID         string                   `json:"pm_id"`
	AppStatus    workflow.AppStatus       `json:"app_status,omitempty"`
	LoadedAt     time.Time                `json:"loaded_at"`
}

// Fetcher is the part of the api client the board uses.
type Fetcher interface {
	GetDocumentsByUser(ctx context.Context, userID string) (models.DocumentsByStatus, error)
	GetMessagesByFP(ctx context.Context, fpID string, toFP bool) ([]models.Message, error)
	GetFPByID(ctx context.Context, id string) (*models.FieldPartner, error)
	UpdateFieldPartnerStatus(ctx context.Context, id string, status workflow.AppStatus) result.Write
}

// Load fetches documents, messages and the FP record concurrently and waits
// for all three. A failed fetch leaves its part at the empty value.
func Load(ctx context.Context, f Fetcher, fpID string, role workflow.Role) *State {
	start := time.Now()
	defer func() { metrics.BootstrapDuration.WithLabelValues(role.Short()).Observe(time.Since(start).Seconds()) }()

	var (
		docs models.DocumentsByStatus
		msgs []models.Message
		fp   *models.FieldPartner
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := f.GetDocumentsByUser(gctx, fpID)
		if err != nil {
			logger.Warnf("dashboard: documents for %s: %v", fpID, err)
			return nil
		}
		docs = d
		return nil
	})
	g.Go(func() error {
		m, err := f.GetMessagesByFP(gctx, fpID, role == workflow.RoleFieldPartner)
		if err != nil {
			logger.Warnf("dashboard: messages for %s: %v", fpID, err)
			return nil
		}
		msgs = m
		return nil
	})
	g.Go(func() error {
		p, err := f.GetFPByID(gctx, fpID)
		if err != nil {
			logger.Warnf("dashboard: field partner %s: %v", fpID, err)
			return nil
		}
		fp = p
		return nil
	})
	_ = g.Wait()

	st := &State{
		FPID:      fpID,
		Role:      role,
		Phase:     PhaseReady,
		Documents: docs,
		Messages:  msgs,
		LoadedAt:  time.Now().UTC(),
	}
	if st.Documents == nil {
		st.Documents = models.DocumentsByStatus{}
	}
	st.Documents.Normalize()
	if st.Messages == nil {
		st.Messages = []models.Message{}
	}
	if fp != nil {
		st.Instructions = fp.Instructions
		st.PMID = fp.PMID
		st.AppStatus = fp.AppStatus
		st.DueDate = FormatDueDate(fp.DueDate)
	}
	return st
}

var dueDateInputs = []string{
	time.RFC3339,
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// FormatDueDate renders a backend date as DueDateLayout. Values it cannot
// parse are shown unchanged.
func FormatDueDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dueDateInputs {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DueDateLayout)
		}
	}
	return raw
}

// Service loads boards into session state and runs the role actions. Every
// trigger for a session and field partner goes through the guard.
type Service struct {
	fetch    Fetcher
	sessions *sessions.Service
	guard    sessions.Guard
}

func NewService(f Fetcher, s *sessions.Service, g sessions.Guard) *Service {
	return &Service{fetch: f, sessions: s, guard: g}
}

func guardKey(sessionID, fpID string) string { return sessionID + ":" + fpID }

// Bootstrap loads the board for fpID and stores it under the session.
func (s *Service) Bootstrap(ctx context.Context, sessionID, fpID string, role workflow.Role) (*State, error) {
	release, err := s.guard.Acquire(ctx, guardKey(sessionID, fpID))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.sessions.SaveState(ctx, sessionID, fpID, &State{FPID: fpID, Role: role, Phase: PhaseLoading}); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	st := Load(ctx, s.fetch, fpID, role)
	if err := s.sessions.SaveState(ctx, sessionID, fpID, st); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return st, nil
}

// State returns the stored board.
func (s *Service) State(ctx context.Context, sessionID, fpID string) (*State, error) {
	var st State
	if err := s.sessions.LoadState(ctx, sessionID, fpID, &st); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, ErrNoState
		}
		return nil, err
	}
	return &st, nil
}

// Finish marks the field partner Complete. On success it returns the
// overview path of the owning PM taken from the loaded FP record; on a
// failed write it returns the write and no path.
func (s *Service) Finish(ctx context.Context, sessionID, fpID string) (string, result.Write, error) {
	release, err := s.guard.Acquire(ctx, guardKey(sessionID, fpID))
	if err != nil {
		return "", result.Write{}, err
	}
	defer release()

	st, err := s.State(ctx, sessionID, fpID)
	if err != nil {
		return "", result.Write{}, err
	}
	v, err := ViewFor(st.Role)
	if err != nil {
		return "", result.Write{}, err
	}
	if !v.Can(ActionFinish) {
		return "", result.Write{}, ErrNotPermitted
	}
	if st.PMID == "" {
		return "", result.Write{}, ErrNoOwner
	}

	w := s.fetch.UpdateFieldPartnerStatus(ctx, fpID, workflow.AppComplete)
	if !w.OK() {
		return "", w, nil
	}
	st.AppStatus = workflow.AppComplete
	if err := s.sessions.SaveState(ctx, sessionID, fpID, st); err != nil {
		logger.Warnf("dashboard: save finished state for %s: %v", fpID, err)
	}
	return "/overview/" + st.PMID, w, nil
}

// UpdateInstructions returns where a PM edits the FP's requirements.
func (s *Service) UpdateInstructions(ctx context.Context, sessionID, fpID string) (string, error) {
	st, err := s.State(ctx, sessionID, fpID)
	if err != nil {
		return "", err
	}
	v, err := ViewFor(st.Role)
	if err != nil {
		return "", err
	}
	if !v.Can(ActionUpdateInstructions) {
		return "", ErrNotPermitted
	}
	return "/setup/" + fpID, nil
}

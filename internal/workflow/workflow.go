// Package workflow holds the document status model shared by portfolio managers
// and field partners: roles, the document status vocabulary, the allowed moves
// between statuses and the per-role column ordering used by the dashboard.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Role is fixed for the lifetime of a session.
type Role string

const (
	RolePortfolioManager Role = "PortfolioManager"
	RoleFieldPartner     Role = "FieldPartner"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts the canonical names and the short route forms "pm" / "fp".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pm", "portfoliomanager", "portfolio_manager":
		return RolePortfolioManager, nil
	case "fp", "fieldpartner", "field_partner":
		return RoleFieldPartner, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) IsPM() bool { return r == RolePortfolioManager }

// Short returns the route form of the role ("pm" or "fp").
func (r Role) Short() string {
	if r.IsPM() {
		return "pm"
	}
	return "fp"
}

// Status is the lifecycle state of a single requested document.
type Status string

const (
	StatusMissing  Status = "Missing"
	StatusPending  Status = "Pending"
	StatusRejected Status = "Rejected"
	StatusApproved Status = "Approved"
)

var ErrUnknownStatus = errors.New("unknown document status")

func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusMissing, StatusPending, StatusRejected, StatusApproved} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Terminal reports whether no further move is possible.
func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// IsDecision reports whether s is a status a portfolio manager may assign.
func (s Status) IsDecision() bool { return s == StatusApproved || s == StatusRejected }

// Event names the action that moves a document between statuses.
type Event string

const (
	EventUpload  Event = "upload"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
)

// transitions is the complete move table. Approved has no entry.
var transitions = map[Status]map[Event]Status{
	StatusMissing:  {EventUpload: StatusPending},
	StatusPending:  {EventApprove: StatusApproved, EventReject: StatusRejected},
	StatusRejected: {EventUpload: StatusPending},
}

// TransitionError reports a move the workflow does not allow.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition error [%s->%s]: %s", e.From, e.To, e.Reason)
}

// EventFor returns the event that moves `from` to `to`.
func EventFor(from, to Status) (Event, error) {
	for ev, target := range transitions[from] {
		if target == to {
			return ev, nil
		}
	}
	return "", &TransitionError{From: from, To: to, Reason: "no transition between these statuses"}
}

func CanTransition(from, to Status) bool {
	_, err := EventFor(from, to)
	return err == nil
}

// Targets lists the statuses reachable from `from` in a stable order.
func Targets(from Status) []Status {
	out := []Status{}
	for _, st := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if CanTransition(from, st) {
			out = append(out, st)
		}
	}
	return out
}

var (
	pmColumns = []Status{StatusPending, StatusMissing, StatusRejected, StatusApproved}
	fpColumns = []Status{StatusMissing, StatusRejected, StatusPending, StatusApproved}
)

// Columns returns the dashboard column order for a role, top to bottom.
// The order is a display policy only.
func Columns(r Role) []Status {
	src := fpColumns
	if r.IsPM() {
		src = pmColumns
	}
	out := make([]Status, len(src))
	copy(out, src)
	return out
}

// AppStatus tracks a field partner's overall progress, separate from
// per-document status.
type AppStatus string

const (
	AppNewPartner AppStatus = "New Partner"
	AppInProcess  AppStatus = "In Process"
	AppComplete   AppStatus = "Complete"
)

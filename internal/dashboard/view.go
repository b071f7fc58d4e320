// Package dashboard is the view model behind a field partner's document
// board. A View variant per role carries the column order and the actions
// that role may trigger; Service loads and acts on a board.
package dashboard

import (
	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/workflow"
)

type Action string

const (
	ActionFinish             Action = "finish"
	ActionUpdateInstructions Action = "update_instructions"
)

// View is implemented by PMView and FPView.
type View interface {
	Role() workflow.Role
	Columns() []workflow.Status
	Actions() []Action
	Can(a Action) bool
}

type PMView struct{}

func (PMView) Role() workflow.Role        { return workflow.RolePortfolioManager }
func (PMView) Columns() []workflow.Status { return workflow.Columns(workflow.RolePortfolioManager) }
func (PMView) Actions() []Action          { return []Action{ActionUpdateInstructions} }
func (v PMView) Can(a Action) bool        { return can(v, a) }

type FPView struct{}

func (FPView) Role() workflow.Role        { return workflow.RoleFieldPartner }
func (FPView) Columns() []workflow.Status { return workflow.Columns(workflow.RoleFieldPartner) }
func (FPView) Actions() []Action          { return []Action{ActionFinish} }
func (v FPView) Can(a Action) bool        { return can(v, a) }

func can(v View, a Action) bool {
	for _, x := range v.Actions() {
		if x == a {
			return true
		}
	}
	return false
}

// ViewFor picks the variant for a role.
func ViewFor(r workflow.Role) (View, error) {
	switch r {
	case workflow.RolePortfolioManager:
		return PMView{}, nil
	case workflow.RoleFieldPartner:
		return FPView{}, nil
	}
	return nil, workflow.ErrUnknownRole
}

// Column is one status group, rendered top to bottom in View order.
type Column struct {
	Status    workflow.Status   `json:"status"`
	Documents []models.Document `json:"documents"`
}

// Group lays docs out in the view's column order. Absent statuses get an
// empty column, never a nil one.
func Group(v View, docs models.DocumentsByStatus) []Column {
	cols := v.Columns()
	out := make([]Column, 0, len(cols))
	for _, st := range cols {
		d := docs[st]
		if d == nil {
			d = []models.Document{}
		}
		out = append(out, Column{Status: st, Documents: d})
	}
	return out
}

package sessions

import (
	"time"

	"github.com/docflow/docflow/portal/internal/workflow"
)

// Session is one browser's portal session. The role is fixed when the
// session is created.
type Session struct {
	ID        string        `json:"id"`
	Role      workflow.Role `json:"role"`
	Subject   string        `json:"sub,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

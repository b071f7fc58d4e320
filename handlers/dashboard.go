package handlers

import (
	"net/http"

	"github.com/docflow/docflow/portal/internal/config"
	"github.com/docflow/docflow/portal/internal/dashboard"
	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves a field partner's board for the role in the path.
type DashboardHandler struct {
	cfg         *config.Config
	board       *dashboard.Service
	sessionsSvc *sessions.Service
}

func NewDashboardHandler(cfg *config.Config, b *dashboard.Service, s *sessions.Service) *DashboardHandler {
	return &DashboardHandler{cfg: cfg, board: b, sessionsSvc: s}
}

func (h *DashboardHandler) Register(rg *gin.RouterGroup) {
	d := rg.Group("/dashboard/:user/:id")
	d.GET("", h.Show)
	d.POST("/finish", middleware.RequireToken(), h.Finish)
	d.GET("/update", h.Update)
}

type boardResponse struct {
	Role         workflow.Role      `json:"role"`
	FPID         string             `json:"fp_id"`
	Phase        dashboard.Phase    `json:"phase"`
	Columns      []dashboard.Column `json:"columns"`
	Actions      []dashboard.Action `json:"actions"`
	Messages     []models.Message   `json:"messages"`
	Instructions string             `json:"instructions"`
	DueDate      string             `json:"due_date"`
	PMID         string             `json:"pm_id"`
	AppStatus    workflow.AppStatus `json:"app_status,omitempty"`
}

func render(v dashboard.View, st *dashboard.State) boardResponse {
	return boardResponse{
		Role:         v.Role(),
		FPID:         st.FPID,
		Phase:        st.Phase,
		Columns:      dashboard.Group(v, st.Documents),
		Actions:      v.Actions(),
		Messages:     st.Messages,
		Instructions: st.Instructions,
		DueDate:      st.DueDate,
		PMID:         st.PMID,
		AppStatus:    st.AppStatus,
	}
}

// Show bootstraps the board. A browser without a session gets one bound to
// the path role; an existing session keeps its role.
func (h *DashboardHandler) Show(c *gin.Context) {
	role, err := workflow.ParseRole(c.Param("user"))
	if err != nil {
		respondErr(c, err)
		return
	}
	view, err := dashboard.ViewFor(role)
	if err != nil {
		respondErr(c, err)
		return
	}
	sid, _ := c.Cookie(h.cfg.Session.CookieName)
	sess, created, err := h.sessionsSvc.Resolve(c.Request.Context(), sid, role)
	if err != nil {
		respondErr(c, err)
		return
	}
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.Session.CookieName, sess.ID, int(h.cfg.Session.TTL.Seconds()), "/", "", h.cfg.Session.Secure, true)
	}
	st, err := h.board.Bootstrap(c.Request.Context(), sess.ID, c.Param("id"), role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, render(view, st))
}

// session returns the caller's existing session and checks it against the
// path role.
func (h *DashboardHandler) session(c *gin.Context) (*sessions.Session, error) {
	role, err := workflow.ParseRole(c.Param("user"))
	if err != nil {
		return nil, err
	}
	return sessionFor(c, h.sessionsSvc, h.cfg.Session.CookieName, role)
}

func sessionFor(c *gin.Context, svc *sessions.Service, cookie string, role workflow.Role) (*sessions.Session, error) {
	sid, _ := c.Cookie(cookie)
	sess, err := svc.Get(c.Request.Context(), sid)
	if err != nil {
		return nil, err
	}
	if role != "" && sess.Role != role {
		return nil, sessions.ErrRoleMismatch
	}
	return sess, nil
}

// Finish marks the field partner Complete. The redirect is only returned
// when the backend accepted the change.
func (h *DashboardHandler) Finish(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	to, w, err := h.board.Finish(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if !w.OK() {
		respondWrite(c, w)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": to, "result": w})
}

func (h *DashboardHandler) Update(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	to, err := h.board.UpdateInstructions(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": to})
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/docflow/docflow/portal/internal/api"
	"github.com/docflow/docflow/portal/internal/config"
	"github.com/docflow/docflow/portal/internal/dashboard"
	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// DocumentHandler runs document transitions for the loaded board. Each move
// is checked against the workflow and the session role before the backend
// sees it, and no other trigger for the board runs until it is recorded.
type DocumentHandler struct {
	cfg         *config.Config
	api         *api.Client
	board       *dashboard.Service
	sessionsSvc *sessions.Service
}

func NewDocumentHandler(cfg *config.Config, c *api.Client, b *dashboard.Service, s *sessions.Service) *DocumentHandler {
	return &DocumentHandler{cfg: cfg, api: c, board: b, sessionsSvc: s}
}

var errNoFile = errors.New("file is required")

// Register mounts the document routes. They all write to the backend, so a
// forwarded token is required.
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	d := rg.Group("/documents/:id", middleware.RequireToken())
	d.PUT("/status", h.UpdateStatus)
	d.PUT("/upload", h.Upload)
}

// UpdateStatus takes form fields fp_id, status (Approved|Rejected) and an
// optional reason.
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	sess, err := sessionFor(c, h.sessionsSvc, h.cfg.Session.CookieName, "")
	if err != nil {
		respondErr(c, err)
		return
	}
	status, err := workflow.ParseStatus(c.PostForm("status"))
	if err != nil {
		respondErr(c, err)
		return
	}
	fpID, docID, reason := c.PostForm("fp_id"), c.Param("id"), c.PostForm("reason")
	w, err := h.board.Transition(c.Request.Context(), sess.ID, fpID, docID, status,
		func(ctx context.Context, doc models.Document) result.Write {
			return h.api.UpdateDocumentStatus(ctx, fpID, doc.ID, status, reason)
		})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondWrite(c, w)
}

// Upload takes form field fp_id and a multipart `file`.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sess, err := sessionFor(c, h.sessionsSvc, h.cfg.Session.CookieName, workflow.RoleFieldPartner)
	if err != nil {
		respondErr(c, err)
		return
	}
	fpID, docID := c.PostForm("fp_id"), c.Param("id")
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFile.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	w, err := h.board.Transition(c.Request.Context(), sess.ID, fpID, docID, workflow.StatusPending,
		func(ctx context.Context, doc models.Document) result.Write {
			return h.api.UploadDocument(ctx, fpID, transport.File{Name: fh.Filename, Content: f}, doc.ID)
		})
	if err != nil {
		respondErr(c, err)
		return
	}
	respondWrite(c, w)
}

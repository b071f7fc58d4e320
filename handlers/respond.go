package handlers

import (
	"errors"
	"net/http"

	"github.com/docflow/docflow/portal/internal/api"
	"github.com/docflow/docflow/portal/internal/dashboard"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/gin-gonic/gin"
)

// writeStatus picks the HTTP status a write envelope is served with. Backend
// client errors pass through; anything else on the backend side is a 502.
func writeStatus(w result.Write) int {
	if w.OK() {
		return http.StatusOK
	}
	var se *transport.StatusError
	if errors.As(w.Err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 {
		return se.StatusCode
	}
	if errors.Is(w.Err, api.ErrMissingArg) || errors.Is(w.Err, workflow.ErrUnknownStatus) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func respondWrite(c *gin.Context, w result.Write) {
	c.JSON(writeStatus(w), w)
}

func errStatus(err error) int {
	var te *workflow.TransitionError
	switch {
	case errors.Is(err, dashboard.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNotPermitted), errors.Is(err, sessions.ErrRoleMismatch):
		return http.StatusForbidden
	case errors.Is(err, dashboard.ErrNoState), errors.Is(err, dashboard.ErrUnknownDocument):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNoOwner):
		return http.StatusUnprocessableEntity
	case errors.As(err, &te):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrUnknownRole), errors.Is(err, workflow.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func respondErr(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}

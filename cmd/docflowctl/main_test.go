package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docflow/docflow/portal/internal/backendtest"
	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, be *backendtest.Backend, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--backend", be.URL()}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginThenCommandSendsToken(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodPost, "/login", gin.H{"token": "jwt-1"})
	be.OK(http.MethodGet, "/getUser", gin.H{"email": "pm@example.org"})

	out, err := run(t, be, "--email", "pm@example.org", "--password", "pw", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, string(result.LoginSuccessful))

	login := be.Find(http.MethodPost, "/login")
	require.Len(t, login, 1)
	require.False(t, login[0].HasToken)
	calls := be.Find(http.MethodGet, "/getUser")
	require.Len(t, calls, 1)
	require.Equal(t, "jwt-1", calls[0].Token)
}

func TestLoginFailureExitsWithError(t *testing.T) {
	be := backendtest.New(t)
	be.Fail(http.MethodPost, "/login", http.StatusUnauthorized)

	out, err := run(t, be, "login", "a@b.c", "wrong")
	require.ErrorIs(t, err, errWriteFailed)
	require.Contains(t, out, string(result.LoginFail))
}

func TestTokenFlagAndWriteEnvelope(t *testing.T) {
	be := backendtest.New(t)
	out, err := run(t, be, "--token", "tok", "partners", "create", "--org", "Acme", "--email", "fp@acme.org", "--pm", "pm1")
	require.NoError(t, err)
	require.Contains(t, out, string(result.CreateFPSuccess))

	reqs := be.Find(http.MethodPost, "/field_partners")
	require.Len(t, reqs, 1)
	require.Equal(t, "tok", reqs[0].Token)
	require.Equal(t, "Acme", reqs[0].Form["org_name"])
	require.Equal(t, string(workflow.AppNewPartner), reqs[0].Form["app_status"])
}

func TestWriteFailureSetsError(t *testing.T) {
	be := backendtest.New(t)
	be.Fail(http.MethodDelete, "/document/d1", http.StatusInternalServerError)

	out, err := run(t, be, "docs", "delete", "d1")
	require.ErrorIs(t, err, errWriteFailed)
	require.Contains(t, out, string(result.DeleteDocumentFail))
}

func TestRequestSplitsClassIDs(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodPost, "/documents", gin.H{"docIDs": []string{"d1", "d2"}})

	_, err := run(t, be, "--token", "tok", "docs", "request", "fp1", "--classes", "c1, c2,", "--due", "2026-12-01")
	require.NoError(t, err)
	reqs := be.Find(http.MethodPost, "/documents")
	require.Len(t, reqs, 1)
	require.Equal(t, "c1,c2", reqs[0].Form["docClassIDs"])

	// one notification per created document, inline
	require.Len(t, be.Find(http.MethodPost, "/messages"), 2)
}

func TestUploadReadsFile(t *testing.T) {
	be := backendtest.New(t)
	path := filepath.Join(t.TempDir(), "id.pdf")
	require.NoError(t, os.WriteFile(path, []byte("PDF"), 0o600))

	_, err := run(t, be, "--token", "tok", "docs", "upload", "d9", path, "--fp", "fp1")
	require.NoError(t, err)
	reqs := be.Find(http.MethodPut, "/document/d9")
	require.Len(t, reqs, 1)
	require.Equal(t, "id.pdf:PDF", reqs[0].Files["file"])
}

func TestReadFailureCarriesTag(t *testing.T) {
	be := backendtest.New(t)
	be.Fail(http.MethodGet, "/messages", http.StatusInternalServerError)

	_, err := run(t, be, "messages", "fp", "fp1")
	require.Error(t, err)
	require.Contains(t, err.Error(), string(result.GetMessagesByIDFail))
}

func TestBoardPrintsRoleOrder(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodGet, "/documents", gin.H{"documents": models.DocumentsByStatus{
		workflow.StatusApproved: {{ID: "d3", Name: "license"}},
		workflow.StatusMissing:  {{ID: "d1", Name: "tax return"}},
	}})
	be.OK(http.MethodGet, "/field_partner/fp1", gin.H{"field_partner": models.FieldPartner{ID: "fp1", PMID: "pm1", DueDate: "2026-12-01", Instructions: "scan both sides"}})

	out, err := run(t, be, "board", "pm", "fp1")
	require.NoError(t, err)
	require.Contains(t, out, "due December 1, 2026")
	require.Contains(t, out, "instructions: scan both sides")

	pending := strings.Index(out, "Pending (0)")
	missing := strings.Index(out, "Missing (1)")
	rejected := strings.Index(out, "Rejected (0)")
	approved := strings.Index(out, "Approved (1)")
	require.True(t, pending >= 0 && pending < missing && missing < rejected && rejected < approved, out)

	// a PM cannot move a Missing or Approved document
	require.Contains(t, out, "  d1 tax return\n")
	require.Contains(t, out, "  d3 license\n")
}

func TestBoardListsRoleMoves(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodGet, "/documents", gin.H{"documents": models.DocumentsByStatus{
		workflow.StatusPending:  {{ID: "d1", Name: "id card"}},
		workflow.StatusRejected: {{ID: "d2", Name: "lease"}},
	}})

	out, err := run(t, be, "board", "pm", "fp1")
	require.NoError(t, err)
	require.Contains(t, out, "  d1 id card -> Approved|Rejected\n")
	require.Contains(t, out, "  d2 lease\n")

	out, err = run(t, be, "board", "fp", "fp1")
	require.NoError(t, err)
	require.Contains(t, out, "  d1 id card\n")
	require.Contains(t, out, "  d2 lease -> Pending\n")
}

func TestTokenStaysOffUnauthenticatedCalls(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodGet, "/field_partner/fp1", gin.H{"field_partner": models.FieldPartner{ID: "fp1"}})

	_, err := run(t, be, "--token", "tok", "partners", "get", "fp1")
	require.NoError(t, err)

	reqs := be.Find(http.MethodGet, "/field_partner/fp1")
	require.Len(t, reqs, 1)
	require.False(t, reqs[0].HasToken)
	require.Empty(t, reqs[0].Cookie)
}

func TestLoginTokenStaysOffUnauthenticatedCalls(t *testing.T) {
	be := backendtest.New(t)
	be.OK(http.MethodPost, "/login", gin.H{"token": "jwt-1"})
	be.OK(http.MethodGet, "/field_partner/fp1", gin.H{"field_partner": models.FieldPartner{ID: "fp1"}})

	_, err := run(t, be, "--email", "pm@example.org", "--password", "pw", "partners", "get", "fp1")
	require.NoError(t, err)

	reqs := be.Find(http.MethodGet, "/field_partner/fp1")
	require.Len(t, reqs, 1)
	require.False(t, reqs[0].HasToken)
	require.Empty(t, reqs[0].Cookie)
}

func TestBoardRejectsUnknownRole(t *testing.T) {
	be := backendtest.New(t)
	_, err := run(t, be, "board", "admin", "fp1")
	require.ErrorIs(t, err, workflow.ErrUnknownRole)
}

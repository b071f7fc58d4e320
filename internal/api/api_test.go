package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/docflow/docflow/portal/internal/backendtest"
	"github.com/docflow/docflow/portal/internal/notify"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

func newClient(t *testing.T) (*Client, *backendtest.Backend, *recordingNotifier) {
	b := backendtest.New(t)
	n := &recordingNotifier{}
	c := New(b.Client(t, transport.WithTokenSource(transport.StaticToken("tok"))), WithNotifier(n))
	return c, b, n
}

type writeCase struct {
	name   string
	method string
	path   string
	auth   bool
	call   func(ctx context.Context, c *Client) result.Write
}

func pdf() transport.File {
	return transport.File{Name: "a.pdf", Content: strings.NewReader("PDF")}
}

func writeCases() []writeCase {
	return []writeCase{
		{"register", http.MethodPost, "/register", false, func(ctx context.Context, c *Client) result.Write {
			return c.Register(ctx, Registration{Email: "a@b.c", Password: "pw", QuestionIdx: 2, Answer: "blue", Role: workflow.RoleFieldPartner})
		}},
		{"login", http.MethodPost, "/login", false, func(ctx context.Context, c *Client) result.Write { return c.Login(ctx, "a@b.c", "pw") }},
		{"getUser", http.MethodGet, "/getUser", true, func(ctx context.Context, c *Client) result.Write { return c.GetUser(ctx) }},
		{"verify", http.MethodPost, "/verify", true, func(ctx context.Context, c *Client) result.Write { return c.Verify(ctx) }},
		{"getSecurityQuestions", http.MethodGet, "/getSecurityQuestions", true, func(ctx context.Context, c *Client) result.Write { return c.GetSecurityQuestions(ctx) }},
		{"setSecurityQuestion", http.MethodPost, "/addSecurityQuestionAnswer", true, func(ctx context.Context, c *Client) result.Write {
			return c.SetSecurityQuestion(ctx, 1, "blue", "pw")
		}},
		{"updateSecurityQuestion", http.MethodPost, "/updateSecurityQuestion", true, func(ctx context.Context, c *Client) result.Write {
			return c.UpdateSecurityQuestion(ctx, 1, "blue", "pw")
		}},
		{"getSecurityQuestionForUser", http.MethodPost, "/getSecurityQuestionForUser", true, func(ctx context.Context, c *Client) result.Write {
			return c.GetSecurityQuestionForUser(ctx, "a@b.c")
		}},
		{"forgotPassword", http.MethodPost, "/forgotPassword", true, func(ctx context.Context, c *Client) result.Write {
			return c.SubmitSecurityQuestionAnswer(ctx, "a@b.c", "blue", 1)
		}},
		{"resetPassword", http.MethodPost, "/resetPassword", true, func(ctx context.Context, c *Client) result.Write {
			return c.ResetPassword(ctx, "a@b.c", "blue", "1234", "new")
		}},
		{"changePassword", http.MethodPost, "/changePassword", true, func(ctx context.Context, c *Client) result.Write { return c.ChangePassword(ctx, "old", "new") }},
		{"verifyPIN", http.MethodPost, "/verifyEmail", true, func(ctx context.Context, c *Client) result.Write { return c.VerifyPIN(ctx, "1234") }},
		{"resendPIN", http.MethodPost, "/resendVerificaitonEmail", true, func(ctx context.Context, c *Client) result.Write { return c.ResendPIN(ctx) }},
		{"createFieldPartner", http.MethodPost, "/field_partners", true, func(ctx context.Context, c *Client) result.Write {
			return c.CreateFieldPartner(ctx, "Org", "fp@b.c", "pm1")
		}},
		{"updateFieldPartnerStatus", http.MethodPut, "/field_partner/fp1", true, func(ctx context.Context, c *Client) result.Write {
			return c.UpdateFieldPartnerStatus(ctx, "fp1", workflow.AppComplete)
		}},
		{"updateFPInstructions", http.MethodPut, "/field_partner/fp1", true, func(ctx context.Context, c *Client) result.Write {
			return c.UpdateFPInstructions(ctx, "fp1", "bring receipts")
		}},
		{"updateFieldPartnerDueDate", http.MethodPut, "/field_partner/fp1", true, func(ctx context.Context, c *Client) result.Write {
			return c.UpdateFieldPartnerDueDate(ctx, "fp1", "2026-12-01")
		}},
		{"createDocumentClass", http.MethodPost, "/document_classes", true, func(ctx context.Context, c *Client) result.Write {
			return c.CreateDocumentClass(ctx, "Tax", "Tax return", pdf())
		}},
		{"updateDocumentClass", http.MethodPut, "/document_class/dc1", true, func(ctx context.Context, c *Client) result.Write {
			f := pdf()
			return c.UpdateDocumentClass(ctx, "dc1", "Tax", "Tax return", &f)
		}},
		{"deleteDocumentClass", http.MethodDelete, "/document_class/dc1", true, func(ctx context.Context, c *Client) result.Write { return c.DeleteDocumentClass(ctx, "dc1") }},
		{"deleteDocument", http.MethodDelete, "/document/d1", true, func(ctx context.Context, c *Client) result.Write { return c.DeleteDocument(ctx, "d1") }},
		{"deleteDocumentsByFP", http.MethodDelete, "/document/delete_by_fp/fp1", true, func(ctx context.Context, c *Client) result.Write {
			return c.DeleteDocumentsByFP(ctx, "fp1")
		}},
		{"updateDocumentStatus", http.MethodPut, "/document/d1", true, func(ctx context.Context, c *Client) result.Write {
			return c.UpdateDocumentStatus(ctx, "fp1", "d1", workflow.StatusRejected, "blurry")
		}},
		{"uploadDocument", http.MethodPut, "/document/d1", true, func(ctx context.Context, c *Client) result.Write {
			return c.UploadDocument(ctx, "fp1", pdf(), "d1")
		}},
		{"createDocuments", http.MethodPost, "/documents", true, func(ctx context.Context, c *Client) result.Write {
			return c.CreateDocuments(ctx, "fp1", []string{"dc1"}, "2026-12-01")
		}},
		{"createMessage", http.MethodPost, "/messages", true, func(ctx context.Context, c *Client) result.Write {
			return c.CreateMessage(ctx, "pm1", true, true, "d1", "")
		}},
	}
}

func TestWritesFailWithUnderlyingError(t *testing.T) {
	for _, tc := range writeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c, b, n := newClient(t)
			b.Fail(tc.method, tc.path, http.StatusInternalServerError)

			w := tc.call(context.Background(), c)
			require.False(t, w.OK())
			require.True(t, strings.HasSuffix(string(w.Tag), "_FAIL"), w.Tag)
			var se *transport.StatusError
			require.True(t, errors.As(w.Err, &se), "payload should be the transport error: %v", w.Err)
			require.Equal(t, http.StatusInternalServerError, se.StatusCode)
			require.Nil(t, w.Response)
			require.Empty(t, n.all(), "failed writes emit no events")
		})
	}
}

func TestWritesSucceedWithTransportResponse(t *testing.T) {
	for _, tc := range writeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c, b, _ := newClient(t)
			b.OK(tc.method, tc.path, map[string]interface{}{"ok": true, "docIDs": []string{"d9"}})

			w := tc.call(context.Background(), c)
			require.True(t, w.OK(), w.String())
			ok := strings.HasSuffix(string(w.Tag), "_SUCCESS") || strings.HasSuffix(string(w.Tag), "_SUCCESSFUL")
			require.True(t, ok, w.Tag)
			require.NotNil(t, w.Response)
			var got bool
			require.NoError(t, w.Response.Field("ok", &got))
			require.True(t, got)
		})
	}
}

func TestTokenHeaderPolicy(t *testing.T) {
	for _, tc := range writeCases() {
		t.Run(tc.name, func(t *testing.T) {
			c, b, _ := newClient(t)
			tc.call(context.Background(), c)
			reqs := b.Find(tc.method, tc.path)
			require.Len(t, reqs, 1)
			require.Equal(t, tc.auth, reqs[0].HasToken)
			if tc.auth {
				require.Equal(t, "tok", reqs[0].Token)
			}
		})
	}

	reads := []struct {
		name string
		path string
		auth bool
		call func(ctx context.Context, c *Client)
	}{
		{"getFPByID", "/field_partner/fp1", false, func(ctx context.Context, c *Client) { c.GetFPByID(ctx, "fp1") }},
		{"getMessagesByFP", "/messages", false, func(ctx context.Context, c *Client) { c.GetMessagesByFP(ctx, "fp1", true) }},
		{"getMessagesByPM", "/messages", true, func(ctx context.Context, c *Client) { c.GetMessagesByPM(ctx, "pm1") }},
		{"getPMByEmail", "/portfolio_managers", true, func(ctx context.Context, c *Client) { c.GetPMByEmail(ctx, "pm@b.c") }},
		{"getFPByEmail", "/field_partners", true, func(ctx context.Context, c *Client) { c.GetFPByEmail(ctx, "fp@b.c") }},
		{"getPartnersByPM", "/field_partners", true, func(ctx context.Context, c *Client) { c.GetPartnersByPM(ctx, "pm1") }},
		{"getAllDocumentClasses", "/document_classes", true, func(ctx context.Context, c *Client) { c.GetAllDocumentClasses(ctx) }},
		{"getDocumentsByUser", "/documents", true, func(ctx context.Context, c *Client) { c.GetDocumentsByUser(ctx, "fp1") }},
		{"downloadDocument", "/box/download", true, func(ctx context.Context, c *Client) { c.DownloadDocument(ctx, "f1") }},
	}
	for _, tc := range reads {
		t.Run(tc.name, func(t *testing.T) {
			c, b, _ := newClient(t)
			tc.call(context.Background(), c)
			reqs := b.Find(http.MethodGet, tc.path)
			require.Len(t, reqs, 1)
			require.Equal(t, tc.auth, reqs[0].HasToken)
		})
	}
}

func TestCreateMessageExactlyOneAuthor(t *testing.T) {
	c, b, _ := newClient(t)
	ctx := context.Background()

	require.True(t, c.CreateMessage(ctx, "pm1", true, true, "d1", "").OK())
	require.True(t, c.CreateMessage(ctx, "fp1", false, false, "d2", "see notes").OK())

	reqs := b.Find(http.MethodPost, "/messages")
	require.Len(t, reqs, 2)

	assert.Equal(t, "pm1", reqs[0].Form["pm_id"])
	assert.NotContains(t, reqs[0].Form, "fp_id")
	assert.Equal(t, "true", reqs[0].Form["to_fp"])
	assert.Equal(t, "d1", reqs[0].Form["doc_id"])
	assert.NotContains(t, reqs[0].Form, "reason")

	assert.Equal(t, "fp1", reqs[1].Form["fp_id"])
	assert.NotContains(t, reqs[1].Form, "pm_id")
	assert.Equal(t, "false", reqs[1].Form["to_fp"])
	assert.Equal(t, "see notes", reqs[1].Form["reason"])

	w := c.CreateMessage(ctx, "", true, true, "d3", "")
	require.False(t, w.OK())
	require.Equal(t, result.CreateMessageFail, w.Tag)
	require.Len(t, b.Find(http.MethodPost, "/messages"), 2, "an author-less message is never sent")
}

func TestCreateDocumentsEmitsOnePerReturnedID(t *testing.T) {
	c, b, n := newClient(t)
	ids := []string{"d1", "d2", "d3"}
	b.OK(http.MethodPost, "/documents", map[string]interface{}{"docIDs": ids})

	w := c.CreateDocuments(context.Background(), "fp1", []string{"c1", "c2", "c3"}, "2026-12-01")
	require.True(t, w.OK())

	req := b.Find(http.MethodPost, "/documents")[0]
	require.Equal(t, "c1,c2,c3", req.Form["docClassIDs"])
	require.Equal(t, "Missing", req.Form["status"])
	require.Equal(t, "fp1", req.Form["userID"])
	require.Equal(t, "2026-12-01", req.Form["dueDate"])

	evs := n.all()
	require.Len(t, evs, 3)
	for i, ev := range evs {
		require.Equal(t, ids[i], ev.DocumentID)
		require.Equal(t, notify.KindRequested, ev.Kind)
		require.Equal(t, "fp1", ev.UserID)
		require.False(t, ev.IsPMID)
		require.True(t, ev.ToFP)
	}
}

func TestCreateDocumentsInlineDeliveryCallsBackendPerID(t *testing.T) {
	b := backendtest.New(t)
	c := New(b.Client(t))
	b.OK(http.MethodPost, "/documents", map[string]interface{}{"docIDs": []string{"x", "y"}})

	require.True(t, c.CreateDocuments(context.Background(), "fp1", []string{"c1", "c2"}, "2026-12-01").OK())
	msgs := b.Find(http.MethodPost, "/messages")
	require.Len(t, msgs, 2)
	require.Equal(t, "x", msgs[0].Form["doc_id"])
	require.Equal(t, "y", msgs[1].Form["doc_id"])
	require.Equal(t, "fp1", msgs[0].Form["fp_id"])
}

func TestNotificationFailureKeepsOuterSuccess(t *testing.T) {
	b := backendtest.New(t)
	c := New(b.Client(t))
	b.Fail(http.MethodPost, "/messages", http.StatusBadGateway)

	w := c.UpdateDocumentStatus(context.Background(), "fp1", "d1", workflow.StatusApproved, "")
	require.True(t, w.OK())
	require.Equal(t, result.UpdateDocStatusSuccess, w.Tag)
	require.Len(t, b.Find(http.MethodPost, "/messages"), 1)
}

func TestUpdateDocumentStatusRefusesNonDecision(t *testing.T) {
	c, b, n := newClient(t)
	w := c.UpdateDocumentStatus(context.Background(), "fp1", "d1", workflow.StatusPending, "")
	require.False(t, w.OK())
	require.Equal(t, result.UpdateDocStatusFail, w.Tag)
	require.Empty(t, b.Requests())
	require.Empty(t, n.all())
}

func TestUploadAndStatusEventsAddressing(t *testing.T) {
	c, b, n := newClient(t)
	ctx := context.Background()

	require.True(t, c.UploadDocument(ctx, "fp1", pdf(), "d1").OK())
	up := b.Find(http.MethodPut, "/document/d1")[0]
	require.Equal(t, "Pending", up.Form["status"])
	require.Equal(t, "a.pdf", up.Form["fileName"])
	require.Equal(t, "a.pdf:PDF", up.Files["file"])

	require.True(t, c.UpdateDocumentStatus(ctx, "fp1", "d1", workflow.StatusRejected, "blurry").OK())

	evs := n.all()
	require.Len(t, evs, 2)
	require.Equal(t, notify.KindUploaded, evs[0].Kind)
	require.False(t, evs[0].ToFP)
	require.Equal(t, notify.KindStatusChanged, evs[1].Kind)
	require.True(t, evs[1].ToFP)
	require.Equal(t, "blurry", evs[1].Reason)
}

func TestReadsReturnNilOnFailure(t *testing.T) {
	c, b, _ := newClient(t)
	b.FailAll(http.StatusServiceUnavailable)
	ctx := context.Background()

	fp, err := c.GetFPByID(ctx, "fp1")
	require.Error(t, err)
	require.Nil(t, fp)

	docs, err := c.GetDocumentsByUser(ctx, "fp1")
	require.Error(t, err)
	require.Nil(t, docs)

	msgs, err := c.GetMessagesByFP(ctx, "fp1", true)
	require.Nil(t, msgs)
	tag, ok := result.TagOf(err)
	require.True(t, ok)
	require.Equal(t, result.GetMessagesByIDFail, tag)

	partners, err := c.GetPartnersByPM(ctx, "pm1")
	require.Nil(t, partners)
	tag, _ = result.TagOf(err)
	require.Equal(t, result.GetPartnersFail, tag)
}

func TestReadsExtractPayload(t *testing.T) {
	c, b, _ := newClient(t)
	ctx := context.Background()
	b.OK(http.MethodGet, "/portfolio_managers", map[string]interface{}{
		"portfolio_manager": []map[string]string{{"_id": "pm1", "email": "pm@b.c"}},
	})
	b.OK(http.MethodGet, "/field_partner/fp1", map[string]interface{}{
		"field_partner": map[string]string{"_id": "fp1", "pm_id": "pm1", "due_date": "2026-12-01", "app_status": "In Process"},
	})
	b.OK(http.MethodGet, "/documents", map[string]interface{}{
		"documents": map[string][]map[string]string{"Missing": {{"_id": "d1", "status": "Missing"}}},
	})
	b.OK(http.MethodGet, "/box/download", map[string]interface{}{"output": "https://files/x"})

	pm, err := c.GetPMByEmail(ctx, "pm@b.c")
	require.NoError(t, err)
	require.Equal(t, "pm1", pm.ID)
	q := b.Find(http.MethodGet, "/portfolio_managers")[0].Query
	require.Equal(t, "pm@b.c", q.Get("email"))

	fp, err := c.GetFPByID(ctx, "fp1")
	require.NoError(t, err)
	require.Equal(t, "pm1", fp.PMID)
	require.Equal(t, workflow.AppInProcess, fp.AppStatus)

	docs, err := c.GetDocumentsByUser(ctx, "fp1")
	require.NoError(t, err)
	require.Len(t, docs[workflow.StatusMissing], 1)

	out, err := c.DownloadDocument(ctx, "f1")
	require.NoError(t, err)
	require.JSONEq(t, `"https://files/x"`, string(out))
	require.Equal(t, "f1", b.Find(http.MethodGet, "/box/download")[0].Query.Get("file_id"))

	b.OK(http.MethodGet, "/field_partners", map[string]interface{}{"field_partner": []interface{}{}})
	_, err = c.GetFPByEmail(ctx, "nobody@b.c")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMessageQueries(t *testing.T) {
	c, b, _ := newClient(t)
	ctx := context.Background()
	b.OK(http.MethodGet, "/messages", map[string]interface{}{"messages": []map[string]interface{}{{"doc_id": "d1", "to_fp": true, "pm_id": "pm1"}}})

	msgs, err := c.GetMessagesByFP(ctx, "fp1", true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	_, err = c.GetMessagesByPM(ctx, "pm1")
	require.NoError(t, err)

	reqs := b.Find(http.MethodGet, "/messages")
	require.Equal(t, "fp1", reqs[0].Query.Get("fp_id"))
	require.Equal(t, "true", reqs[0].Query.Get("to_fp"))
	require.Equal(t, "pm1", reqs[1].Query.Get("pm_id"))
	require.Equal(t, "false", reqs[1].Query.Get("to_fp"))
}

func TestLoginTokenAndFieldNames(t *testing.T) {
	c, b, _ := newClient(t)
	b.OK(http.MethodPost, "/login", map[string]string{"token": "jwt"})
	w := c.Login(context.Background(), "a@b.c", "pw")
	tok, err := TokenFrom(w)
	require.NoError(t, err)
	require.Equal(t, "jwt", tok)

	c.Register(context.Background(), Registration{Email: "a@b.c", Password: "pw", QuestionIdx: 3, Answer: "blue", Role: workflow.RolePortfolioManager})
	reg := b.Find(http.MethodPost, "/register")[0].Form
	require.Equal(t, "3", reg["questionIdx"])
	require.Equal(t, "blue", reg["securityQuestionAnswer"])
	require.Equal(t, "blue", reg["answer"])
	require.Equal(t, "PortfolioManager", reg["role"])

	c.UpdateFieldPartnerDueDate(context.Background(), "fp1", "2026-12-01")
	c.UpdateFPInstructions(context.Background(), "fp1", "bring receipts")
	puts := b.Find(http.MethodPut, "/field_partner/fp1")
	require.Equal(t, map[string]string{"due_date": "2026-12-01"}, puts[0].Form)
	require.Equal(t, map[string]string{"instructions": "bring receipts"}, puts[1].Form)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
)

// GetMessagesByFP is public. Failures carry GET_MESSAGES_BY_ID_FAIL.
func (c *Client) GetMessagesByFP(ctx context.Context, fpID string, toFP bool) ([]models.Message, error) {
	return c.messages(ctx, "getMessagesByFP", url.Values{"fp_id": {fpID}, "to_fp": {boolStr(toFP)}}, false)
}

// GetMessagesByPM lists the messages addressed to the PM.
func (c *Client) GetMessagesByPM(ctx context.Context, pmID string) ([]models.Message, error) {
	return c.messages(ctx, "getMessagesByPM", url.Values{"pm_id": {pmID}, "to_fp": {"false"}}, true)
}

func (c *Client) messages(ctx context.Context, op string, q url.Values, auth bool) ([]models.Message, error) {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: "/messages", Query: q, Auth: auth})
	var msgs []models.Message
	if err == nil {
		err = resp.Field("messages", &msgs)
	}
	return result.ReadTagged(op, result.GetMessagesByIDFail, msgs, err)
}

// CreateMessage sends userID as pm_id when isPMID is set and as fp_id
// otherwise; reason is only sent when non-empty.
func (c *Client) CreateMessage(ctx context.Context, userID string, isPMID, toFP bool, docID, reason string) result.Write {
	const op = "createMessage"
	msg := models.Message{ToFP: toFP, DocumentID: docID, Reason: reason}
	if isPMID {
		msg.PMID = userID
	} else {
		msg.FPID = userID
	}
	if err := msg.Validate(); err != nil {
		return result.Fail(op, result.CreateMessage, fmt.Errorf("%w: empty user id", err))
	}

	fs := make([]transport.Field, 0, 4)
	if isPMID {
		fs = append(fs, field("pm_id", userID))
	} else {
		fs = append(fs, field("fp_id", userID))
	}
	fs = append(fs, field("to_fp", boolStr(toFP)), field("doc_id", docID))
	if reason != "" {
		fs = append(fs, field("reason", reason))
	}
	resp, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: "/messages", Fields: fs, Auth: true})
	return result.Classify(op, result.CreateMessage, resp, err)
}

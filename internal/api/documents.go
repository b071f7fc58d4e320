package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/notify"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/docflow/docflow/portal/pkg/logger"
)

func (c *Client) GetAllDocumentClasses(ctx context.Context) ([]models.DocumentClass, error) {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: "/document_classes", Auth: true})
	var classes []models.DocumentClass
	if err == nil {
		err = resp.Field("document_class", &classes)
	}
	return result.Read("getAllDocumentClasses", classes, err)
}

// CreateDocumentClass uploads a new class with its example file.
func (c *Client) CreateDocumentClass(ctx context.Context, name, description string, file transport.File) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/document_classes",
		Fields: classFields(name, description, &file),
		Files:  []transport.File{withField(file)},
		Auth:   true,
	})
	return result.Classify("createDocumentClass", result.UploadFile, resp, err)
}

// UpdateDocumentClass replaces the class fields; file may be nil to keep the
// current example file.
func (c *Client) UpdateDocumentClass(ctx context.Context, id, name, description string, file *transport.File) result.Write {
	if id == "" {
		return result.Fail("updateDocumentClass", result.UpdateDocumentClass, fmt.Errorf("%w: document class id", ErrMissingArg))
	}
	req := transport.Request{
		Method: http.MethodPut,
		Path:   "/document_class/" + seg(id),
		Fields: classFields(name, description, file),
		Auth:   true,
	}
	if file != nil {
		req.Files = []transport.File{withField(*file)}
	}
	resp, err := c.do(ctx, req)
	return result.Classify("updateDocumentClass", result.UpdateDocumentClass, resp, err)
}

// DeleteDocumentClass is a single request; the backend removes the class and
// its stored files together or not at all.
func (c *Client) DeleteDocumentClass(ctx context.Context, id string) result.Write {
	if id == "" {
		return result.Fail("deleteDocumentClass", result.DeleteDocumentClass, fmt.Errorf("%w: document class id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{Method: http.MethodDelete, Path: "/document_class/" + seg(id), Auth: true})
	return result.Classify("deleteDocumentClass", result.DeleteDocumentClass, resp, err)
}

func classFields(name, description string, file *transport.File) []transport.Field {
	fs := []transport.Field{}
	if file != nil {
		fs = append(fs, field("fileName", file.Name))
	}
	return append(fs, field("name", name), field("description", description))
}

func withField(f transport.File) transport.File {
	if f.Field == "" {
		f.Field = "file"
	}
	return f
}

func (c *Client) DeleteDocument(ctx context.Context, id string) result.Write {
	if id == "" {
		return result.Fail("deleteDocument", result.DeleteDocument, fmt.Errorf("%w: document id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{Method: http.MethodDelete, Path: "/document/" + seg(id), Auth: true})
	return result.Classify("deleteDocument", result.DeleteDocument, resp, err)
}

// DeleteDocumentsByFP removes every document of a field partner.
func (c *Client) DeleteDocumentsByFP(ctx context.Context, fpID string) result.Write {
	if fpID == "" {
		return result.Fail("deleteDocumentsByFP", result.DeleteDocuments, fmt.Errorf("%w: field partner id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{Method: http.MethodDelete, Path: "/document/delete_by_fp/" + seg(fpID), Auth: true})
	return result.Classify("deleteDocumentsByFP", result.DeleteDocuments, resp, err)
}

// DownloadDocument returns the backend's download payload unchanged.
func (c *Client) DownloadDocument(ctx context.Context, fileID string) (json.RawMessage, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/box/download",
		Query:  url.Values{"file_id": {fileID}},
		Auth:   true,
	})
	var out json.RawMessage
	if err == nil {
		err = resp.Field("output", &out)
	}
	return result.Read("downloadDocument", out, err)
}

// UpdateDocumentStatus records a PM decision. userID addresses the
// notification to the field partner; it plays no part in authorization.
func (c *Client) UpdateDocumentStatus(ctx context.Context, userID, docID string, status workflow.Status, reason string) result.Write {
	const op = "updateDocumentStatus"
	if !status.IsDecision() {
		return result.Fail(op, result.UpdateDocStatus, fmt.Errorf("%w: %q is not a decision", workflow.ErrUnknownStatus, status))
	}
	if docID == "" {
		return result.Fail(op, result.UpdateDocStatus, fmt.Errorf("%w: document id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/document/" + seg(docID),
		Fields: []transport.Field{field("status", string(status))},
		Auth:   true,
	})
	w := result.Classify(op, result.UpdateDocStatus, resp, err)
	if w.OK() {
		c.notifier.Notify(ctx, notify.NewEvent(notify.KindStatusChanged, userID, false, true, docID, reason))
	}
	return w
}

// UploadDocument attaches a file and moves the document to Pending.
func (c *Client) UploadDocument(ctx context.Context, userID string, file transport.File, docID string) result.Write {
	const op = "uploadDocument"
	if docID == "" {
		return result.Fail(op, result.UploadFile, fmt.Errorf("%w: document id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/document/" + seg(docID),
		Fields: []transport.Field{
			field("fileName", file.Name),
			field("status", string(workflow.StatusPending)),
		},
		Files: []transport.File{withField(file)},
		Auth:  true,
	})
	w := result.Classify(op, result.UploadFile, resp, err)
	if w.OK() {
		c.notifier.Notify(ctx, notify.NewEvent(notify.KindUploaded, userID, false, false, docID, ""))
	}
	return w
}

// CreateDocuments requests one document per class id with a shared due
// date, then emits one event per document id the backend returns.
func (c *Client) CreateDocuments(ctx context.Context, userID string, classIDs []string, dueDate string) result.Write {
	const op = "createDocuments"
	if len(classIDs) == 0 {
		return result.Fail(op, result.CreateDocuments, fmt.Errorf("%w: document class ids", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/documents",
		Fields: []transport.Field{
			field("userID", userID),
			field("status", string(workflow.StatusMissing)),
			field("docClassIDs", strings.Join(classIDs, ",")),
			field("dueDate", dueDate),
		},
		Auth: true,
	})
	w := result.Classify(op, result.CreateDocuments, resp, err)
	if !w.OK() {
		return w
	}
	var ids []string
	if err := resp.Field("docIDs", &ids); err != nil {
		// the documents exist; only the notifications are lost
		logger.Warnf("createDocuments: no docIDs in response for user %s: %v", userID, err)
		return w
	}
	for _, id := range ids {
		c.notifier.Notify(ctx, notify.NewEvent(notify.KindRequested, userID, false, true, id, ""))
	}
	return w
}

// GetDocumentsByUser returns the user's documents keyed by status.
func (c *Client) GetDocumentsByUser(ctx context.Context, userID string) (models.DocumentsByStatus, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/documents",
		Query:  url.Values{"uid": {userID}},
		Auth:   true,
	})
	var docs models.DocumentsByStatus
	if err == nil {
		err = resp.Field("documents", &docs)
	}
	return result.Read("getDocumentsByUser", docs, err)
}

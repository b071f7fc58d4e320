// Package result classifies transport outcomes. Writes become a tagged
// envelope carrying one of the operation's two outcome tags; reads return
// the extracted value or an error.
package result

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/pkg/metrics"
)

// Tag is the wire-visible outcome name.
type Tag string

const (
	RegisterSuccess Tag = "REGISTER_SUCCESS"
	RegisterFail    Tag = "REGISTER_FAIL"

	LoginSuccessful Tag = "LOGIN_SUCCESSFUL"
	LoginFail       Tag = "LOGIN_FAIL"

	CreateFPSuccess Tag = "CREATE_FP_SUCCESS"
	CreateFPFail    Tag = "CREATE_FP_FAIL"
	UpdateFPSuccess Tag = "UPDATE_FP_SUCCESS"
	UpdateFPFail    Tag = "UPDATE_FP_FAIL"

	UploadFileSuccess Tag = "UPLOAD_FILE_SUCCESS"
	UploadFileFail    Tag = "UPLOAD_FILE_FAIL"

	UpdateDocumentClassSuccess Tag = "UPDATE_DOCUMENT_CLASS_SUCCESS"
	UpdateDocumentClassFail    Tag = "UPDATE_DOCUMENT_CLASS_FAIL"
	DeleteDocumentClassSuccess Tag = "DELETE_DOCUMENT_CLASS_SUCCESS"
	DeleteDocumentClassFail    Tag = "DELETE_DOCUMENT_CLASS_FAIL"

	DeleteDocumentSuccess  Tag = "DELETE_DOCUMENT_SUCCESS"
	DeleteDocumentFail     Tag = "DELETE_DOCUMENT_FAIL"
	DeleteDocumentsSuccess Tag = "DELETE_DOCUMENTS_SUCCESS"
	DeleteDocumentsFail    Tag = "DELETE_DOCUMENTS_FAIL"
	UpdateDocStatusSuccess Tag = "UPDATE_DOC_STATUS_SUCCESS"
	UpdateDocStatusFail    Tag = "UPDATE_DOC_STATUS_FAIL"
	CreateDocumentsSuccess Tag = "CREATE_DOCUMENTS_SUCCESS"
	CreateDocumentsFail    Tag = "CREATE_DOCUMENTS_FAIL"

	CreateMessageSuccess Tag = "CREATE_MESSAGE_SUCCESS"
	CreateMessageFail    Tag = "CREATE_MESSAGE_FAIL"

	// read failures that keep a tag for older consumers
	GetPartnersFail     Tag = "GET_PARTNERS_FAIL"
	GetMessagesByIDFail Tag = "GET_MESSAGES_BY_ID_FAIL"
)

// Family is the success/fail pair of one kind of write.
type Family struct {
	Success Tag
	Fail    Tag
}

var (
	Register            = Family{RegisterSuccess, RegisterFail}
	Login               = Family{LoginSuccessful, LoginFail}
	CreateFP            = Family{CreateFPSuccess, CreateFPFail}
	UpdateFP            = Family{UpdateFPSuccess, UpdateFPFail}
	UploadFile          = Family{UploadFileSuccess, UploadFileFail}
	UpdateDocumentClass = Family{UpdateDocumentClassSuccess, UpdateDocumentClassFail}
	DeleteDocumentClass = Family{DeleteDocumentClassSuccess, DeleteDocumentClassFail}
	DeleteDocument      = Family{DeleteDocumentSuccess, DeleteDocumentFail}
	DeleteDocuments     = Family{DeleteDocumentsSuccess, DeleteDocumentsFail}
	UpdateDocStatus     = Family{UpdateDocStatusSuccess, UpdateDocStatusFail}
	CreateDocuments     = Family{CreateDocumentsSuccess, CreateDocumentsFail}
	CreateMessage       = Family{CreateMessageSuccess, CreateMessageFail}
)

// Families lists every write family.
func Families() []Family {
	return []Family{Register, Login, CreateFP, UpdateFP, UploadFile, UpdateDocumentClass,
		DeleteDocumentClass, DeleteDocument, DeleteDocuments, UpdateDocStatus, CreateDocuments, CreateMessage}
}

// Kind discriminates the two variants of a Write.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindFail
)

// Write is the outcome of a mutating operation. Exactly one of Response
// (success) or Err (fail) is set.
type Write struct {
	Op       string
	Kind     Kind
	Tag      Tag
	Response *transport.Response
	Err      error
}

func (w Write) OK() bool { return w.Kind == KindSuccess }

func (w Write) String() string {
	if w.OK() {
		return string(w.Tag)
	}
	return fmt.Sprintf("%s: %v", w.Tag, w.Err)
}

// MarshalJSON renders the legacy `{type, response|error}` shape.
func (w Write) MarshalJSON() ([]byte, error) {
	if !w.OK() {
		msg := ""
		if w.Err != nil {
			msg = w.Err.Error()
		}
		return json.Marshal(struct {
			Type  Tag    `json:"type"`
			Error string `json:"error"`
		}{w.Tag, msg})
	}
	var payload json.RawMessage
	if w.Response != nil {
		payload = w.Response.Result
		if len(payload) == 0 && json.Valid(w.Response.Body) {
			payload = w.Response.Body
		}
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Type     Tag             `json:"type"`
		Response json.RawMessage `json:"response"`
	}{w.Tag, payload})
}

// Classify maps one transport outcome onto the family's tags.
func Classify(op string, f Family, resp *transport.Response, err error) Write {
	if err != nil {
		return Fail(op, f, err)
	}
	metrics.APICalls.WithLabelValues(op, "success").Inc()
	return Write{Op: op, Kind: KindSuccess, Tag: f.Success, Response: resp}
}

// Fail classifies an error that happened before or instead of a request.
func Fail(op string, f Family, err error) Write {
	if err == nil {
		err = errors.New("unknown failure")
	}
	metrics.APICalls.WithLabelValues(op, "fail").Inc()
	return Write{Op: op, Kind: KindFail, Tag: f.Fail, Err: err}
}

// ReadError wraps a read failure that carries a legacy tag.
type ReadError struct {
	Op  string
	Tag Tag
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("%s (%s): %v", e.Op, e.Tag, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// TagOf returns the legacy tag of a read error, if any.
func TagOf(err error) (Tag, bool) {
	var re *ReadError
	if errors.As(err, &re) {
		return re.Tag, true
	}
	return "", false
}

// Read classifies a read. On failure the zero value is returned so callers
// never see a partially decoded payload.
func Read[T any](op string, v T, err error) (T, error) {
	if err != nil {
		metrics.APICalls.WithLabelValues(op, "fail").Inc()
		var zero T
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	metrics.APICalls.WithLabelValues(op, "success").Inc()
	return v, nil
}

// ReadTagged is Read for the reads whose failures carry a tag.
func ReadTagged[T any](op string, tag Tag, v T, err error) (T, error) {
	if err != nil {
		metrics.APICalls.WithLabelValues(op, "fail").Inc()
		var zero T
		return zero, &ReadError{Op: op, Tag: tag, Err: err}
	}
	metrics.APICalls.WithLabelValues(op, "success").Inc()
	return v, nil
}

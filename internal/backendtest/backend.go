// Package backendtest runs a scriptable stand-in for the document backend.
// Every request is recorded; replies are set per method and path.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/gin-gonic/gin"
)

// Request is one recorded call.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Form     map[string]string
	Files    map[string]string
	HasToken bool
	Token    string
	Cookie   string
}

// Reply is what a route answers with. Result is wrapped as {"result": Result}
// unless Raw is set. A non-nil Hold delays the answer until it is closed.
type Reply struct {
	Status int
	Result interface{}
	Raw    string
	Hold   <-chan struct{}
}

type Backend struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []Request
	replies  map[string]Reply
}

func New(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b := &Backend{replies: map[string]Reply{}}
	r := gin.New()
	r.Any("/*path", b.handle)
	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) URL() string { return b.srv.URL }

// Client returns a transport client pointed at the fake.
func (b *Backend) Client(t testing.TB, opts ...transport.Option) *transport.Client {
	t.Helper()
	c, err := transport.New(b.srv.URL, opts...)
	if err != nil {
		t.Fatalf("transport client: %v", err)
	}
	return c
}

// On sets the reply for method and path (no query string).
func (b *Backend) On(method, path string, r Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[method+" "+path] = r
}

// OK replies 200 with result.
func (b *Backend) OK(method, path string, result interface{}) {
	b.On(method, path, Reply{Status: http.StatusOK, Result: result})
}

// Fail replies with status and a plain error body.
func (b *Backend) Fail(method, path string, status int) {
	b.On(method, path, Reply{Status: status, Raw: http.StatusText(status)})
}

// FailAll makes every unscripted route fail with status.
func (b *Backend) FailAll(status int) {
	b.On("*", "*", Reply{Status: status, Raw: http.StatusText(status)})
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Find returns the recorded calls to method and path.
func (b *Backend) Find(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) Last() (Request, bool) {
	reqs := b.Requests()
	if len(reqs) == 0 {
		return Request{}, false
	}
	return reqs[len(reqs)-1], true
}

func (b *Backend) handle(c *gin.Context) {
	rec := Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Form:   map[string]string{},
		Files:  map[string]string{},
		Cookie: c.GetHeader("Cookie"),
	}
	if vals, ok := c.Request.Header["Token"]; ok {
		rec.HasToken = true
		if len(vals) > 0 {
			rec.Token = vals[0]
		}
	}
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			if len(v) > 0 {
				rec.Form[k] = v[0]
			}
		}
		for k, fhs := range form.File {
			if len(fhs) == 0 {
				continue
			}
			f, err := fhs[0].Open()
			if err != nil {
				continue
			}
			data, _ := io.ReadAll(f)
			f.Close()
			rec.Files[k] = fhs[0].Filename + ":" + string(data)
		}
	}

	b.mu.Lock()
	b.requests = append(b.requests, rec)
	reply, ok := b.replies[rec.Method+" "+rec.Path]
	if !ok {
		reply, ok = b.replies["* *"]
	}
	b.mu.Unlock()

	if reply.Hold != nil {
		<-reply.Hold
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"result": gin.H{}})
		return
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if reply.Raw != "" {
		c.Data(status, "text/plain; charset=utf-8", []byte(reply.Raw))
		return
	}
	body, err := json.Marshal(gin.H{"result": reply.Result})
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, "application/json", body)
}

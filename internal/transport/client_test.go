package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoMultipartAndTokenHeader(t *testing.T) {
	var gotToken []string
	var gotFields map[string]string
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Values("token")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if f, _, err := r.FormFile("file"); err == nil {
			b, _ := io.ReadAll(f)
			gotFile = string(b)
		}
		w.Write([]byte(`{"result":{"ok":true}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTokenSource(StaticToken("abc")))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "/document/d1",
		Fields: []Field{{Name: "status", Value: "Pending"}, {Name: "fileName", Value: "a.pdf"}},
		Files:  []File{{Field: "file", Name: "a.pdf", Content: strings.NewReader("PDF")}},
		Auth:   true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"abc"}, gotToken)
	require.Equal(t, "Pending", gotFields["status"])
	require.Equal(t, "a.pdf", gotFields["fileName"])
	require.Equal(t, "PDF", gotFile)

	var ok bool
	require.NoError(t, resp.Field("ok", &ok))
	require.True(t, ok)
}

func TestDoUnauthenticatedOmitsHeader(t *testing.T) {
	present := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Token"]
		w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTokenSource(StaticToken("abc")))
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/login", Fields: []Field{{Name: "email", Value: "a@b.c"}}})
	require.NoError(t, err)
	require.False(t, present)
}

func TestDoAuthWithoutTokenStillSendsHeader(t *testing.T) {
	var vals []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vals = r.Header.Values("token")
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/getUser", Auth: true})
	require.NoError(t, err)
	require.Equal(t, []string{""}, vals)
}

func TestDoErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boom":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/garbage":
			w.Write([]byte("<html>"))
		default:
			w.Write([]byte(`{"result":{"list":[1,2]}}`))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Do(ctx, Request{Method: http.MethodGet, Path: "/boom"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Equal(t, "nope", se.Body)

	_, err = c.Do(ctx, Request{Method: http.MethodGet, Path: "/garbage"})
	require.ErrorIs(t, err, ErrMalformedBody)

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/ok"})
	require.NoError(t, err)
	var missing []int
	require.ErrorIs(t, resp.Field("other", &missing), ErrMissingField)
	var wrong string
	require.ErrorIs(t, resp.Field("list", &wrong), ErrMalformedBody)
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	var se *StatusError
	require.False(t, errors.As(err, &se))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)
}

func TestQueryEncoding(t *testing.T) {
	var q string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.RawQuery
	}))
	defer srv.Close()
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/box/download", Query: map[string][]string{"file_id": {"f 1"}}})
	require.NoError(t, err)
	require.Equal(t, "file_id=f+1", q)
}

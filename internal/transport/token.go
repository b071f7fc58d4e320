package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// TokenCookie is the cookie the backend token is kept under.
const TokenCookie = "token"

var ErrNoToken = errors.New("no auth token available")

// TokenSource yields the token attached to authenticated requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

type tokenKey struct{}

// WithToken stores a per-request token (the browser's cookie, when the
// portal forwards a call) on the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey{}).(string)
	return tok, ok && tok != ""
}

// ContextToken reads the token from the request context and falls back to
// Fallback when none is set.
type ContextToken struct {
	Fallback TokenSource
}

func (c ContextToken) Token(ctx context.Context) (string, error) {
	if tok, ok := TokenFromContext(ctx); ok {
		return tok, nil
	}
	if c.Fallback != nil {
		return c.Fallback.Token(ctx)
	}
	return "", ErrNoToken
}

// NewCookieJar returns a jar using the public suffix list.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// JarToken keeps the token in a cookie jar scoped to the backend URL, the
// way a browser keeps it in document.cookie.
type JarToken struct {
	Jar  http.CookieJar
	URL  *url.URL
	Name string
}

func NewJarToken(jar http.CookieJar, backend *url.URL) *JarToken {
	return &JarToken{Jar: jar, URL: backend, Name: TokenCookie}
}

func (j *JarToken) Token(context.Context) (string, error) {
	for _, c := range j.Jar.Cookies(j.URL) {
		if c.Name == j.Name && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", ErrNoToken
}

// Set stores a token, e.g. one returned in a login response body.
func (j *JarToken) Set(token string) {
	j.Jar.SetCookies(j.URL, []*http.Cookie{{Name: j.Name, Value: token, Path: "/"}})
}

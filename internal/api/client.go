// Package api has one method per backend capability. Each method shapes a
// request, hands it to the transport and classifies the outcome: writes
// return a result.Write, reads return the extracted value or an error.
package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/docflow/docflow/portal/internal/notify"
	"github.com/docflow/docflow/portal/internal/transport"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrMissingArg = errors.New("missing argument")
)

type Client struct {
	t        transport.Doer
	notifier notify.Notifier
}

type Option func(*Client)

// WithNotifier sets where document events go. Without it events are
// delivered inline after the write.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func New(t transport.Doer, opts ...Option) *Client {
	c := &Client{t: t}
	for _, o := range opts {
		o(c)
	}
	if c.notifier == nil {
		c.notifier = notify.Direct{Sender: c}
	}
	return c
}

// UseNotifier swaps the notifier; the dispatcher needs the client as its
// sender, so it is built after the client.
func (c *Client) UseNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Discard{}
	}
	c.notifier = n
}

func (c *Client) do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	return c.t.Do(ctx, req)
}

func field(name, value string) transport.Field { return transport.Field{Name: name, Value: value} }

func seg(id string) string { return url.PathEscape(id) }

func itoa(i int) string { return strconv.Itoa(i) }

func boolStr(b bool) string { return strconv.FormatBool(b) }

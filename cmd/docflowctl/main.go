// Command docflowctl drives the document backend from a terminal: log in,
// manage field partners and document classes, request and review documents,
// and print a field partner's board the way the portal lays it out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/docflow/docflow/portal/internal/api"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errWriteFailed = errors.New("write failed")

// cli carries the flags shared by every command and the client built from them.
type cli struct {
	v *viper.Viper

	client *api.Client
	jar    *transport.JarToken
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "docflowctl",
		Short:         "Command-line client for the docflow document backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(c.v.GetString("log-level"))
			return c.connect(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.String("backend", "http://localhost:3000", "backend base URL")
	pf.String("token", "", "backend token (skips login)")
	pf.String("email", "", "log in with this email before running the command")
	pf.String("password", "", "password for --email")
	pf.Duration("timeout", 15*time.Second, "per-request timeout")
	pf.String("log-level", "warn", "debug|info|warn|error")
	_ = c.v.BindPFlags(pf)
	c.v.SetEnvPrefix("DOCFLOW")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.loginCmd(),
		c.userCmd(),
		c.partnersCmd(),
		c.classesCmd(),
		c.documentsCmd(),
		c.messagesCmd(),
		c.boardCmd(),
	)
	return root
}

// connect builds the api client. The token comes from --token, or from a
// login with --email/--password kept in a cookie jar for the run.
func (c *cli) connect(ctx context.Context) error {
	jar, err := transport.NewCookieJar()
	if err != nil {
		return err
	}
	backend, err := url.Parse(c.v.GetString("backend"))
	if err != nil {
		return fmt.Errorf("parse backend url: %w", err)
	}
	c.jar = transport.NewJarToken(jar, backend)
	if tok := c.v.GetString("token"); tok != "" {
		c.jar.Set(tok)
	}
	// The jar only stores the token. It is not attached to the http client,
	// so the cookie never rides along on unauthenticated calls.
	tc, err := transport.New(backend.String(),
		transport.WithTimeout(c.v.GetDuration("timeout")),
		transport.WithTokenSource(c.jar),
	)
	if err != nil {
		return err
	}
	c.client = api.New(tc)

	if email := c.v.GetString("email"); email != "" {
		if _, err := c.login(ctx, email, c.v.GetString("password")); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) login(ctx context.Context, email, password string) (result.Write, error) {
	w := c.client.Login(ctx, email, password)
	if !w.OK() {
		return w, fmt.Errorf("%w: %s", errWriteFailed, w)
	}
	tok, err := api.TokenFrom(w)
	if err != nil {
		return w, fmt.Errorf("login: %w", err)
	}
	c.jar.Set(tok)
	logger.Debugf("logged in as %s", email)
	return w, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printWrite prints the tagged envelope and turns a FAIL into an error so
// the exit status reflects it.
func printWrite(cmd *cobra.Command, w result.Write) error {
	if err := printJSON(cmd.OutOrStdout(), w); err != nil {
		return err
	}
	if !w.OK() {
		return fmt.Errorf("%w: %s", errWriteFailed, w.Tag)
	}
	return nil
}

func printRead(cmd *cobra.Command, v interface{}, err error) error {
	if err != nil {
		if tag, ok := result.TagOf(err); ok {
			return fmt.Errorf("%s: %w", tag, err)
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
)

type Registration struct {
	Email       string
	Password    string
	QuestionIdx int
	Answer      string
	Role        workflow.Role
}

func (c *Client) Register(ctx context.Context, r Registration) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/register",
		Fields: []transport.Field{
			field("email", r.Email),
			field("password", r.Password),
			field("securityQuestionAnswer", r.Answer),
			field("questionIdx", itoa(r.QuestionIdx)),
			field("role", string(r.Role)),
			field("answer", r.Answer),
		},
	})
	return result.Classify("register", result.Register, resp, err)
}

func (c *Client) Login(ctx context.Context, email, password string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Fields: []transport.Field{field("email", email), field("password", password)},
	})
	return result.Classify("login", result.Login, resp, err)
}

// TokenFrom extracts the session token from a successful login.
func TokenFrom(w result.Write) (string, error) {
	if !w.OK() {
		return "", w.Err
	}
	var tok string
	if err := w.Response.Field("token", &tok); err != nil {
		return "", err
	}
	return tok, nil
}

func (c *Client) GetUser(ctx context.Context) result.Write {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: "/getUser", Auth: true})
	return result.Classify("getUser", result.Login, resp, err)
}

func (c *Client) Verify(ctx context.Context) result.Write {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: "/verify", Auth: true})
	return result.Classify("verify", result.Register, resp, err)
}

func (c *Client) GetSecurityQuestions(ctx context.Context) result.Write {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: "/getSecurityQuestions", Auth: true})
	return result.Classify("getSecurityQuestions", result.Login, resp, err)
}

func (c *Client) SetSecurityQuestion(ctx context.Context, questionIdx int, answer, password string) result.Write {
	return c.securityQuestion(ctx, "setSecurityQuestion", "/addSecurityQuestionAnswer", questionIdx, answer, password)
}

func (c *Client) UpdateSecurityQuestion(ctx context.Context, questionIdx int, answer, password string) result.Write {
	return c.securityQuestion(ctx, "updateSecurityQuestion", "/updateSecurityQuestion", questionIdx, answer, password)
}

func (c *Client) securityQuestion(ctx context.Context, op, path string, questionIdx int, answer, password string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   path,
		Fields: []transport.Field{
			field("questionIdx", itoa(questionIdx)),
			field("answer", answer),
			field("password", password),
		},
		Auth: true,
	})
	return result.Classify(op, result.Login, resp, err)
}

func (c *Client) GetSecurityQuestionForUser(ctx context.Context, email string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/getSecurityQuestionForUser",
		Fields: []transport.Field{field("email", email)},
		Auth:   true,
	})
	return result.Classify("getSecurityQuestionForUser", result.Login, resp, err)
}

// SubmitSecurityQuestionAnswer starts the password reset; the backend mails a PIN.
func (c *Client) SubmitSecurityQuestionAnswer(ctx context.Context, email, answer string, questionIdx int) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/forgotPassword",
		Fields: []transport.Field{
			field("email", email),
			field("answer", answer),
			field("questionIdx", itoa(questionIdx)),
		},
		Auth: true,
	})
	return result.Classify("forgotPassword", result.Login, resp, err)
}

func (c *Client) ResetPassword(ctx context.Context, email, answer, pin, password string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/resetPassword",
		Fields: []transport.Field{
			field("email", email),
			field("answer", answer),
			field("pin", pin),
			field("password", password),
		},
		Auth: true,
	})
	return result.Classify("resetPassword", result.Login, resp, err)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/changePassword",
		Fields: []transport.Field{field("currentPassword", current), field("newPassword", next)},
		Auth:   true,
	})
	return result.Classify("changePassword", result.Login, resp, err)
}

func (c *Client) VerifyPIN(ctx context.Context, pin string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/verifyEmail",
		Fields: []transport.Field{field("pin", pin)},
		Auth:   true,
	})
	return result.Classify("verifyPIN", result.Login, resp, err)
}

// ResendPIN asks for a new verification mail. The path spelling is the
// backend's.
func (c *Client) ResendPIN(ctx context.Context) result.Write {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodPost, Path: "/resendVerificaitonEmail", Auth: true})
	return result.Classify("resendPIN", result.Login, resp, err)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/result"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/internal/workflow"
)

func (c *Client) GetPMByEmail(ctx context.Context, email string) (*models.PortfolioManager, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/portfolio_managers",
		Query:  url.Values{"email": {email}},
		Auth:   true,
	})
	pm, err := first[models.PortfolioManager](resp, err, "portfolio_manager")
	return result.Read("getPMByEmail", pm, err)
}

// GetFPByID is public: the dashboard bootstraps from it before a session exists.
func (c *Client) GetFPByID(ctx context.Context, id string) (*models.FieldPartner, error) {
	resp, err := c.do(ctx, transport.Request{Method: http.MethodGet, Path: "/field_partner/" + seg(id)})
	var fp *models.FieldPartner
	if err == nil {
		var v models.FieldPartner
		if err = resp.Field("field_partner", &v); err == nil {
			fp = &v
		}
	}
	return result.Read("getFPByID", fp, err)
}

func (c *Client) GetFPByEmail(ctx context.Context, email string) (*models.FieldPartner, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/field_partners",
		Query:  url.Values{"email": {email}},
		Auth:   true,
	})
	fp, err := first[models.FieldPartner](resp, err, "field_partner")
	return result.Read("getFPByEmail", fp, err)
}

// CreateFieldPartner registers a partner under pmID with status New Partner.
func (c *Client) CreateFieldPartner(ctx context.Context, orgName, email, pmID string) result.Write {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/field_partners",
		Fields: []transport.Field{
			field("org_name", orgName),
			field("email", email),
			field("pm_id", pmID),
			field("app_status", string(workflow.AppNewPartner)),
		},
		Auth: true,
	})
	return result.Classify("createFieldPartner", result.CreateFP, resp, err)
}

// GetPartnersByPM fails with a *result.ReadError tagged GET_PARTNERS_FAIL.
func (c *Client) GetPartnersByPM(ctx context.Context, pmID string) ([]models.FieldPartner, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/field_partners",
		Query:  url.Values{"pm_id": {pmID}},
		Auth:   true,
	})
	var fps []models.FieldPartner
	if err == nil {
		err = resp.Field("field_partner", &fps)
	}
	return result.ReadTagged("getPartnersByPM", result.GetPartnersFail, fps, err)
}

func (c *Client) UpdateFieldPartnerStatus(ctx context.Context, id string, status workflow.AppStatus) result.Write {
	return c.updateFP(ctx, "updateFieldPartnerStatus", id, field("app_status", string(status)))
}

func (c *Client) UpdateFPInstructions(ctx context.Context, id, instructions string) result.Write {
	return c.updateFP(ctx, "updateFPInstructions", id, field("instructions", instructions))
}

func (c *Client) UpdateFieldPartnerDueDate(ctx context.Context, id, dueDate string) result.Write {
	return c.updateFP(ctx, "updateFieldPartnerDueDate", id, field("due_date", dueDate))
}

func (c *Client) updateFP(ctx context.Context, op, id string, f transport.Field) result.Write {
	if id == "" {
		return result.Fail(op, result.UpdateFP, fmt.Errorf("%w: field partner id", ErrMissingArg))
	}
	resp, err := c.do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/field_partner/" + seg(id),
		Fields: []transport.Field{f},
		Auth:   true,
	})
	return result.Classify(op, result.UpdateFP, resp, err)
}

// first decodes result[key] as a list and returns its head.
func first[T any](resp *transport.Response, err error, key string) (*T, error) {
	if err != nil {
		return nil, err
	}
	var list []T
	if err := resp.Field(key, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return &list[0], nil
}

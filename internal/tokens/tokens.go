package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/docflow/docflow/portal/internal/models"
	"github.com/docflow/docflow/portal/internal/workflow"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")
)

// Claims is the part of the backend token the portal looks at.
type Claims struct {
	Subject   string
	Email     string
	Role      workflow.Role
	ExpiresAt time.Time
}

// GenerateAccessToken signs a token the way the backend does. The portal
// only uses it in tests and the fake backend.
func GenerateAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// Inspect reads claims without checking the signature; the backend remains
// the authority on validity. Expired tokens return the claims and ErrExpired.
func Inspect(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromMap(mc)
}

// Verify checks an HS256 signature with secret before reading claims.
func Verify(token, secret string) (*Claims, error) {
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromMap(mc)
}

func fromMap(mc jwt.MapClaims) (*Claims, error) {
	c := &Claims{}
	c.Subject, _ = mc.GetSubject()
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	if role, ok := mc["role"].(string); ok && role != "" {
		r, err := workflow.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		c.Role = r
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
		if time.Now().After(exp.Time) {
			return c, ErrExpired
		}
	}
	return c, nil
}

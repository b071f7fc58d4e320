package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docflow/docflow/portal/internal/workflow"
)

var ErrRoleMismatch = errors.New("session role does not match")

// Service manages sessions and the per-session state kept alongside them.
type Service struct {
	store Store
	ttl   time.Duration
}

func NewService(s Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{store: s, ttl: ttl}
}

func sessionKey(id string) string { return "sess:" + id }

func stateKey(id, scope string) string { return "state:" + id + ":" + scope }

// CreateSession stores a new session with a random id.
func (s *Service) CreateSession(ctx context.Context, role workflow.Role, sub string) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        hex.EncodeToString(b),
		Role:      role,
		Subject:   sub,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, sessionKey(sess.ID), raw, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get returns the session or ErrNotFound once it has expired.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.store.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		// cleanup expired session
		_ = s.store.Del(ctx, sessionKey(id))
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Resolve returns the session for id, creating one with role when it does
// not exist. An existing session with a different role is refused.
func (s *Service) Resolve(ctx context.Context, id string, role workflow.Role) (*Session, bool, error) {
	sess, err := s.Get(ctx, id)
	switch {
	case err == nil:
		if sess.Role != role {
			return sess, false, fmt.Errorf("%w: session is %s", ErrRoleMismatch, sess.Role)
		}
		return sess, false, nil
	case errors.Is(err, ErrNotFound):
		sess, err = s.CreateSession(ctx, role, "")
		return sess, err == nil, err
	default:
		return nil, false, err
	}
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Del(ctx, sessionKey(id))
}

// SaveState stores v as JSON under the session and scope.
func (s *Service) SaveState(ctx context.Context, id, scope string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, stateKey(id, scope), raw, s.ttl)
}

// LoadState decodes the stored state into v; ErrNotFound when absent.
func (s *Service) LoadState(ctx context.Context, id, scope string, v interface{}) error {
	raw, err := s.store.Get(ctx, stateKey(id, scope))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

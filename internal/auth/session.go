package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/leadgate/leadgate/internal/shared"
)

// SessionStore keeps authenticated user snapshots in Redis, keyed by an
// opaque bearer token. The snapshot is written once at login and read-only
// afterwards; logout deletes it.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore with the given lifetime.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores the user snapshot and returns the new session token.
func (s *SessionStore) Create(ctx context.Context, user *User) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token back into the user snapshot.
func (s *SessionStore) Get(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, shared.ErrUnauthorized
	}
	payload, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	var user User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, err
	}
	if !user.Role.Valid() {
		// A stale snapshot with a role the model no longer knows must not
		// reach the policy engine.
		return nil, shared.ErrUnauthorized
	}
	return &user, nil
}

// Delete removes the session; deleting an unknown token is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	err := s.client.Del(ctx, sessionKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func sessionKey(token string) string {
	return "session:" + token
}

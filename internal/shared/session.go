package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// Session is the authenticated browser session as written to Redis by the
// authentication service. This subsystem never issues or mutates sessions;
// it only resolves the cookie to a user id.
type Session struct {
	ID     string
	UserID int64
}

type sessionPayload struct {
	UserID int64 `json:"user_id"`
}

// SessionManager reads cookie based sessions from the shared Redis keyspace.
type SessionManager struct {
	client     *redis.Client
	cookieName string
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName}
}

// Load resolves the request's session cookie. A missing or expired cookie
// yields a nil session, not an error.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	if stored.UserID == 0 {
		return nil, nil
	}
	return &Session{ID: cookie.Value, UserID: stored.UserID}, nil
}

func (sm *SessionManager) redisKey(id string) string {
	return fmt.Sprintf("scholaris:session:%s", id)
}

// Package session keeps per-browser dashboard sessions in Redis.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "insights_session"

// Manager orchestrates cookie based sessions backed by Redis.
type Manager struct {
	client     redis.Cmdable
	cookieName string
	ttl        time.Duration
	firstTTL   time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data.
type Session struct {
	ID        string
	lastView  string
	createdAt time.Time
	isNew     bool
	dirty     bool
}

type payload struct {
	LastView  string    `json:"last_view"`
	CreatedAt time.Time `json:"created_at"`
}

// NewManager constructs a Manager. Cookie values are signed with secret.
func NewManager(client redis.Cmdable, cookieName, secret string, ttl time.Duration, secure bool) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Manager{client: client, cookieName: cookieName, ttl: ttl, secure: secure, secret: []byte(secret)}
}

// WithFirstVisitTTL bounds how long a session that has only been seen once
// stays in Redis. The full ttl applies from the second request on, so clients
// that never return a cookie cannot hold keys for the whole session lifetime.
func (m *Manager) WithFirstVisitTTL(d time.Duration) *Manager {
	m.firstTTL = d
	return m
}

// Load loads the session named by the request cookie or starts a new one.
// A cookie whose Redis entry has expired keeps its id.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return m.newSession(""), nil
		}
		return nil, err
	}
	id, ok := m.verify(cookie.Value)
	if !ok {
		return m.newSession(""), nil
	}

	data, err := m.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return m.newSession(id), nil
		}
		return nil, err
	}

	var stored payload
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &Session{ID: id, lastView: stored.LastView, createdAt: stored.CreatedAt}, nil
}

// Commit persists the session and refreshes the cookie.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(payload{LastView: sess.lastView, CreatedAt: sess.createdAt})
		if err != nil {
			return err
		}
		if err := m.client.Set(ctx, redisKey(sess.ID), data, m.storeTTL(sess)).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	} else if m.ttl > 0 {
		if err := m.client.Expire(ctx, redisKey(sess.ID), m.ttl).Err(); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.ttl),
	})
	return nil
}

// LastView returns the view most recently selected in this session.
func (s *Session) LastView() string {
	return s.lastView
}

// SetLastView records the selected view.
func (s *Session) SetLastView(id string) {
	if s.lastView == id {
		return
	}
	s.lastView = id
	s.dirty = true
}

// IsNew reports whether the session has not been persisted yet.
func (s *Session) IsNew() bool {
	return s.isNew
}

func (m *Manager) storeTTL(sess *Session) time.Duration {
	if sess.IsNew() && m.firstTTL > 0 && (m.ttl <= 0 || m.firstTTL < m.ttl) {
		return m.firstTTL
	}
	return m.ttl
}

func (m *Manager) newSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id, createdAt: time.Now().UTC(), isNew: true, dirty: true}
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify returns the session id carried by a signed cookie value.
func (m *Manager) verify(value string) (string, bool) {
	id, _, found := strings.Cut(value, ".")
	if !found {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(value), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}

func redisKey(id string) string {
	return "insights:session:" + id
}

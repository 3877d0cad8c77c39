// sessions.go - Database-backed sessions with one-shot flash messages.
//
// The cookie carries only a random token plus an HMAC signature; all session
// state (user association, flash queues, expiry) lives in the sessions table.
// A session expires 10 minutes after creation or last touch: every load
// pushes expires_at forward, and an expired or unknown token is replaced by
// a fresh anonymous session.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the sliding expiry window.
const SessionTTL = 10 * time.Minute

const defaultCookieName = "sendbox_session"

// Session is one server-side session row.
type Session struct {
	Token        uuid.UUID
	UserID       *uuid.UUID
	FlashSuccess []string
	FlashError   []string
	ExpiresAt    time.Time
}

// Anonymous reports whether the session carries no user identity.
func (s *Session) Anonymous() bool { return s.UserID == nil }

// SessionStore persists session rows.
type SessionStore interface {
	Create(ctx context.Context, sess *Session) error
	// Get returns the row for token, expired or not; expiry is the
	// manager's concern. Returns ErrNotFound for unknown tokens.
	Get(ctx context.Context, token uuid.UUID) (*Session, error)
	Touch(ctx context.Context, token uuid.UUID, expiresAt time.Time) error
	SetUser(ctx context.Context, token uuid.UUID, userID *uuid.UUID) error
	SetFlash(ctx context.Context, token uuid.UUID, success, failure []string) error
	Delete(ctx context.Context, token uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sessionManager ties the cookie protocol to a SessionStore.
type sessionManager struct {
	store      SessionStore
	secret     []byte
	cookieName string
	ttl        time.Duration
}

func newSessionManager(store SessionStore, secret string) *sessionManager {
	return &sessionManager{
		store:      store,
		secret:     []byte(secret),
		cookieName: defaultCookieName,
		ttl:        SessionTTL,
	}
}

func (m *sessionManager) sign(msg string) string {
	h := hmac.New(sha256.New, m.secret)
	_, _ = h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

// encodeCookie returns "token.signature".
func (m *sessionManager) encodeCookie(token uuid.UUID) string {
	t := token.String()
	return t + "." + m.sign(t)
}

// decodeCookie verifies the signature and parses the token.
func (m *sessionManager) decodeCookie(value string) (uuid.UUID, error) {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return uuid.Nil, errors.New("invalid cookie format")
	}
	want := m.sign(parts[0])
	if !hmac.Equal([]byte(parts[1]), []byte(want)) {
		return uuid.Nil, errors.New("invalid signature")
	}
	return uuid.Parse(parts[0])
}

// load returns the request's session, creating a fresh anonymous one when
// the cookie is missing, tampered with, unknown, or expired. Valid sessions
// are touched so the 10-minute window slides.
func (m *sessionManager) load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	ctx := r.Context()

	if c, err := r.Cookie(m.cookieName); err == nil {
		token, derr := m.decodeCookie(c.Value)
		if derr == nil {
			sess, gerr := m.store.Get(ctx, token)
			switch {
			case gerr == nil && sess.ExpiresAt.After(time.Now()):
				sess.ExpiresAt = time.Now().Add(m.ttl)
				if terr := m.store.Touch(ctx, token, sess.ExpiresAt); terr != nil {
					return nil, terr
				}
				m.setCookie(w, sess)
				return sess, nil
			case gerr == nil:
				// Expired: drop the row and fall through to a new session.
				_ = m.store.Delete(ctx, token)
			case !errors.Is(gerr, ErrNotFound):
				return nil, gerr
			}
		}
	}

	sess := &Session{
		Token:     uuid.New(),
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	m.setCookie(w, sess)
	return sess, nil
}

func (m *sessionManager) setCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.encodeCookie(sess.Token),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login associates the session with a user.
func (m *sessionManager) Login(ctx context.Context, sess *Session, userID uuid.UUID) error {
	sess.UserID = &userID
	return m.store.SetUser(ctx, sess.Token, sess.UserID)
}

// Logout clears the session's user association immediately; subsequent
// requests see no current user.
func (m *sessionManager) Logout(ctx context.Context, sess *Session) error {
	sess.UserID = nil
	return m.store.SetUser(ctx, sess.Token, nil)
}

// FlashSuccess queues a success message for the next rendered page.
func (m *sessionManager) FlashSuccess(ctx context.Context, sess *Session, msg string) error {
	sess.FlashSuccess = append(sess.FlashSuccess, msg)
	return m.store.SetFlash(ctx, sess.Token, sess.FlashSuccess, sess.FlashError)
}

// FlashError queues an error message for the next rendered page.
func (m *sessionManager) FlashError(ctx context.Context, sess *Session, msg string) error {
	sess.FlashError = append(sess.FlashError, msg)
	return m.store.SetFlash(ctx, sess.Token, sess.FlashSuccess, sess.FlashError)
}

// Drain pops all queued flash messages so they are shown exactly once.
func (m *sessionManager) Drain(ctx context.Context, sess *Session) (success, failure []string, err error) {
	success, failure = sess.FlashSuccess, sess.FlashError
	if len(success) == 0 && len(failure) == 0 {
		return nil, nil, nil
	}
	sess.FlashSuccess, sess.FlashError = nil, nil
	if err := m.store.SetFlash(ctx, sess.Token, nil, nil); err != nil {
		return nil, nil, err
	}
	return success, failure, nil
}

// PostgresSessionStore implements SessionStore on top of the sessions table.
// Flash queues are kept as jsonb arrays on the row.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func marshalFlash(msgs []string) ([]byte, error) {
	if msgs == nil {
		msgs = []string{}
	}
	return json.Marshal(msgs)
}

func (s *PostgresSessionStore) Create(ctx context.Context, sess *Session) error {
	successJSON, err := marshalFlash(sess.FlashSuccess)
	if err != nil {
		return err
	}
	errorJSON, err := marshalFlash(sess.FlashError)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, flash_success, flash_error, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.Token, sess.UserID, successJSON, errorJSON, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) Get(ctx context.Context, token uuid.UUID) (*Session, error) {
	sess := &Session{}
	var successJSON, errorJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, flash_success, flash_error, expires_at
		FROM sessions
		WHERE token = $1
	`, token).Scan(&sess.Token, &sess.UserID, &successJSON, &errorJSON, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	if err := json.Unmarshal(successJSON, &sess.FlashSuccess); err != nil {
		return nil, fmt.Errorf("decode flash: %w", err)
	}
	if err := json.Unmarshal(errorJSON, &sess.FlashError); err != nil {
		return nil, fmt.Errorf("decode flash: %w", err)
	}
	if len(sess.FlashSuccess) == 0 {
		sess.FlashSuccess = nil
	}
	if len(sess.FlashError) == 0 {
		sess.FlashError = nil
	}
	return sess, nil
}

func (s *PostgresSessionStore) Touch(ctx context.Context, token uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE token = $1`, token, expiresAt)
	return err
}

func (s *PostgresSessionStore) SetUser(ctx context.Context, token uuid.UUID, userID *uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET user_id = $2 WHERE token = $1`, token, userID)
	return err
}

func (s *PostgresSessionStore) SetFlash(ctx context.Context, token uuid.UUID, success, failure []string) error {
	successJSON, err := marshalFlash(success)
	if err != nil {
		return err
	}
	errorJSON, err := marshalFlash(failure)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET flash_success = $2, flash_error = $3 WHERE token = $1`,
		token, successJSON, errorJSON)
	return err
}

func (s *PostgresSessionStore) Delete(ctx context.Context, token uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

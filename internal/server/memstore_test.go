package server

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory store implementations used by the handler and session tests.
// They mirror the semantics of the Postgres stores, including the sentinel
// errors handlers match on.

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*User)}
}

func (s *memUserStore) Register(ctx context.Context, email, username, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if strings.TrimSpace(password) == "" {
		return nil, ErrWeakPassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return nil, ErrDuplicateKey
		}
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *memUserStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			if !verifyPassword(password, u.PasswordHash) {
				return nil, ErrInvalidCredentials
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (s *memUserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) all() []*User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out
}

func (s *memUserStore) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type memFileStore struct {
	mu    sync.Mutex
	files []*File
}

func newMemFileStore() *memFileStore {
	return &memFileStore{}
}

func (s *memFileStore) Create(ctx context.Context, name, url string, sizeBytes int64, contentType string) (*File, error) {
	f := &File{
		ID:          uuid.New(),
		Name:        name,
		URL:         url,
		SizeBytes:   sizeBytes,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	s.mu.Lock()
	s.files = append(s.files, f)
	s.mu.Unlock()
	cp := *f
	return &cp, nil
}

func (s *memFileStore) all() []*File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*File, 0, len(s.files))
	for _, f := range s.files {
		cp := *f
		out = append(out, &cp)
	}
	return out
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*Session)}
}

func copySession(s *Session) *Session {
	cp := *s
	if s.UserID != nil {
		id := *s.UserID
		cp.UserID = &id
	}
	cp.FlashSuccess = append([]string(nil), s.FlashSuccess...)
	cp.FlashError = append([]string(nil), s.FlashError...)
	return &cp
}

func (s *memSessionStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = copySession(sess)
	return nil
}

func (s *memSessionStore) Get(ctx context.Context, token uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *memSessionStore) Touch(ctx context.Context, token uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.ExpiresAt = expiresAt
	}
	return nil
}

func (s *memSessionStore) SetUser(ctx context.Context, token uuid.UUID, userID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		if userID != nil {
			id := *userID
			sess.UserID = &id
		} else {
			sess.UserID = nil
		}
	}
	return nil
}

func (s *memSessionStore) SetFlash(ctx context.Context, token uuid.UUID, success, failure []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.FlashSuccess = append([]string(nil), success...)
		sess.FlashError = append([]string(nil), failure...)
	}
	return nil
}

func (s *memSessionStore) Delete(ctx context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *memSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// expire backdates every session so the next load sees it as expired.
func (s *memSessionStore) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

func (s *memSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type memBlob struct {
	data        []byte
	contentType string
}

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string]memBlob
	failPut bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string]memBlob)}
}

func (s *memBlobStore) Put(ctx context.Context, filename, contentType string, r io.Reader) (StoredObject, error) {
	if s.failPut {
		return StoredObject{}, fmt.Errorf("%w: put refused", ErrStorageUnavailable)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	key := "uploads/" + uuid.New().String() + "-" + filename
	s.mu.Lock()
	s.objects[key] = memBlob{data: data, contentType: contentType}
	s.mu.Unlock()

	return StoredObject{
		URL:         "mem://bucket/" + key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Deps are the process-wide collaborators, constructed in main and
// injected here. There are no ambient singletons.
type Deps struct {
	Config   Config
	Users    UserStore
	Files    FileStore
	Sessions SessionStore
	Blobs    BlobStore
}

type Server struct {
	httpServer *http.Server

	cfg       Config
	users     UserStore
	files     FileStore
	sessions  *sessionManager
	blobs     BlobStore
	templates map[string]*template.Template
}

func New(deps Deps) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       deps.Config,
		users:     deps.Users,
		files:     deps.Files,
		sessions:  newSessionManager(deps.Sessions, deps.Config.Secret),
		blobs:     deps.Blobs,
		templates: templates,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(s.sessionMiddleware)
	r.Use(s.currentUserMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleHome)
	r.Get("/files/new", s.handleSendForm)
	r.Post("/files", s.handleCreateFile)
	r.Get("/register", s.handleRegisterForm)
	r.Post("/register", s.handleRegister)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)

	s.httpServer = &http.Server{
		Addr:              deps.Config.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// sessionMiddleware loads or creates the request's session and stores it in
// the context. The load slides the 10-minute expiry window.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.load(w, r)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUserMiddleware resolves the session's user association, if any,
// and exposes it to handlers. A session pointing at a deleted user is
// treated as anonymous.
func (s *Server) currentUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil || sess.Anonymous() {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.users.ByID(r.Context(), *sess.UserID)
		if err != nil {
			// ErrNotFound and transient store errors both degrade to
			// an anonymous request rather than a 500.
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

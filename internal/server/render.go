// render.go - Request context and template rendering.
//
// The render context is explicit: current user (or nil), drained flash
// queues, nothing ambient. Flashes are drained only when a page actually
// renders, so redirect responses leave them for the next render.
package server

import (
	"context"
	"log"
	"net/http"
)

const (
	sessionKey ctxKey = "session"
	userKey    ctxKey = "current_user"
)

// renderContext is the data every template receives.
type renderContext struct {
	CurrentUser *User
	Success     []string
	Error       []string
}

func sessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

func userFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userKey).(*User); ok {
		return u
	}
	return nil
}

// render drains the session's flash queues into the page and executes it.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string) {
	ctx := r.Context()
	data := renderContext{CurrentUser: userFromContext(ctx)}

	if sess := sessionFromContext(ctx); sess != nil {
		success, failure, err := s.sessions.Drain(ctx, sess)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		data.Success, data.Error = success, failure
	}

	t, ok := s.templates[page]
	if !ok {
		log.Printf("rid=%s msg=unknown_template page=%s", RequestIDFromContext(ctx), page)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		log.Printf("rid=%s msg=render_failed page=%s err=%v", RequestIDFromContext(ctx), page, err)
	}
}

// serverError is the boundary for truly unexpected errors: log and 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("rid=%s msg=internal_error err=%v", RequestIDFromContext(r.Context()), err)
	http.Error(w, "server error", http.StatusInternalServerError)
}

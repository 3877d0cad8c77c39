// handlers.go - Route handlers.
//
// Every failure a user can recover from becomes a one-shot flash message
// plus a redirect to a sensible page; no structured error payloads.
package server

import (
	"errors"
	"log"
	"net/http"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("hello"))
}

func (s *Server) handleSendForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "send_form")
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register")
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login")
}

// handleCreateFile runs the upload adapter and persists the metadata
// record. Unauthenticated requests are turned away before the body is
// touched, so no adapter work happens for them.
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if userFromContext(ctx) == nil {
		s.flashError(w, r, "You must be signed in")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	res, err := handleUpload(w, r, s.blobs, s.cfg.MaxUploadBytes)
	if err != nil {
		rid := RequestIDFromContext(ctx)
		log.Printf("rid=%s msg=upload_failed err=%v", rid, err)

		msg := "File cannot be sent"
		if errors.Is(err, ErrPayloadTooLarge) {
			msg = "File is too large"
		}
		s.flashError(w, r, msg)
		http.Redirect(w, r, "/files/new", http.StatusFound)
		return
	}

	if _, err := s.files.Create(ctx, res.Name, res.Object.URL, res.Object.Size, res.Object.ContentType); err != nil {
		// The object is already durable at the provider; a failed
		// metadata write leaves it orphaned. Accepted gap.
		rid := RequestIDFromContext(ctx)
		log.Printf("rid=%s msg=file_record_failed err=%v", rid, err)
		s.flashError(w, r, "File cannot be sent")
		http.Redirect(w, r, "/files/new", http.StatusFound)
		return
	}

	s.flashSuccess(w, r, "File sent successfully")
	http.Redirect(w, r, "/files/new", http.StatusFound)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		s.flashError(w, r, "Invalid form submission")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	user, err := s.users.Register(ctx,
		r.PostFormValue("email"),
		r.PostFormValue("username"),
		r.PostFormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrWeakPassword):
			s.flashError(w, r, err.Error())
		default:
			s.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	// Log the new session in immediately.
	if err := s.sessions.Login(ctx, sess, user.ID); err != nil {
		s.serverError(w, r, err)
		return
	}

	s.flashSuccess(w, r, "Welcome, now you can send a file")
	http.Redirect(w, r, "/files/new", http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		s.flashError(w, r, "Invalid form submission")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := s.users.Authenticate(ctx,
		r.PostFormValue("username"),
		r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.flashError(w, r, "Invalid username or password")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		s.serverError(w, r, err)
		return
	}

	if err := s.sessions.Login(ctx, sess, user.ID); err != nil {
		s.serverError(w, r, err)
		return
	}

	s.flashSuccess(w, r, "Welcome back")
	http.Redirect(w, r, "/files/new", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	if err := s.sessions.Logout(ctx, sess); err != nil {
		s.serverError(w, r, err)
		return
	}

	s.flashSuccess(w, r, "Goodbye")
	http.Redirect(w, r, "/files/new", http.StatusFound)
}

func (s *Server) flashSuccess(w http.ResponseWriter, r *http.Request, msg string) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		if err := s.sessions.FlashSuccess(r.Context(), sess, msg); err != nil {
			log.Printf("rid=%s msg=flash_failed err=%v", RequestIDFromContext(r.Context()), err)
		}
	}
}

func (s *Server) flashError(w http.ResponseWriter, r *http.Request, msg string) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		if err := s.sessions.FlashError(r.Context(), sess, msg); err != nil {
			log.Printf("rid=%s msg=flash_failed err=%v", RequestIDFromContext(r.Context()), err)
		}
	}
}

package server

import (
	"net/http"
	"strconv"

	"github.com/jarlab/jarlab/internal/session"
	"go.uber.org/zap"
)

const sessionCookieName = "jl_session"

// sessionHandler is a handler that runs with the caller's form session
// locked.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the jl_session cookie to a form session, starting a
// new one when the cookie is absent or has expired.
func (s *Server) withSession(h sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookieName); err == nil {
			id = c.Value
		}

		sess, created := s.sessions.GetOrCreate(id)
		if created {
			if n := s.sessions.Sweep(s.sessionIdle); n > 0 {
				s.logger.Debug("expired form sessions", zap.Int("count", n))
			}
			s.metrics.Sessions.Set(float64(s.sessions.Len()))
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		sess.Lock()
		defer sess.Unlock()
		h(w, r, sess)
	})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code))
	})
}

package web

import (
	"net/http"
	"regexp"
	"strings"
	"time"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

type roomHandler func(w http.ResponseWriter, r *http.Request, roomID string)

// withRoomID validates the {id} path segment and hands it to the handler.
func (s *Server) withRoomID(next roomHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("id")
		if !roomIDPattern.MatchString(roomID) {
			writeError(w, http.StatusBadRequest, "malformed room id")
			return
		}
		next(w, r, roomID)
	}
}

// protected wraps withRoomID with the password gate. The presented secret
// is either the digest (X-Room-Password header or password query
// parameter) or a bearer token minted by verify-password. A protected
// request on a passworded room without a verifying secret fails with 401
// and password_required so the client knows to prompt.
func (s *Server) protected(next roomHandler) http.HandlerFunc {
	return s.withRoomID(func(w http.ResponseWriter, r *http.Request, roomID string) {
		if tokenRoom, ok := s.bearerRoom(r); ok && tokenRoom == roomID {
			next(w, r, roomID)
			return
		}

		digest := r.Header.Get("X-Room-Password")
		if digest == "" {
			digest = r.URL.Query().Get("password")
		}

		if err := s.rooms.CheckAccess(r.Context(), roomID, digest); err != nil {
			s.respondError(w, r, err)
			return
		}
		next(w, r, roomID)
	})
}

// bearerRoom extracts the room granted by an Authorization bearer token,
// if one is present and valid.
func (s *Server) bearerRoom(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	roomID, err := parseRoomToken(s.secret, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return "", false
	}
	return roomID, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

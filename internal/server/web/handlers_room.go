package web

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"os"
	"strconv"
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newRoomID draws 8 characters from the 62-symbol alphabet, giving a 62^8
// identifier space.
func newRoomID() string {
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDAlphabet))))
		if err != nil {
			panic(err)
		}
		b[i] = roomIDAlphabet[n.Int64()]
	}
	return string(b)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/room/"+newRoomID(), http.StatusFound)
}

// handleRoomAsset serves the single-file client. The asset is produced by
// a separate build; without one configured we still answer so that
// redirects do not dead-end.
func (s *Server) handleRoomAsset(w http.ResponseWriter, r *http.Request) {
	if !roomIDPattern.MatchString(r.PathValue("id")) {
		writeError(w, http.StatusBadRequest, "malformed room id")
		return
	}
	if s.cfg.StaticAssetPath != "" {
		if _, err := os.Stat(s.cfg.StaticAssetPath); err == nil {
			http.ServeFile(w, r, s.cfg.StaticAssetPath)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><title>LivePaste</title><p>client asset not configured</p>"))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, roomID string) {
	info, err := s.rooms.Info(r.Context(), roomID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           info.ID,
		"has_password": info.HasPassword,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, roomID string) {
	version, err := s.rooms.Version(r.Context(), roomID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"version": version})
}

func (s *Server) handleKillRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := s.rooms.Delete(r.Context(), roomID); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, roomID string) {
	q := r.URL.Query()
	since := parseInt64(q.Get("since"), 0)
	limit := int(parseInt64(q.Get("limit"), 0))
	offset := int(parseInt64(q.Get("offset"), 0))

	state, err := s.files.State(r.Context(), roomID, since, limit, offset)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateJSON(state))
}

type passwordRequest struct {
	Password        string `json:"password"`
	CurrentPassword string `json:"current_password"`
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request, roomID string) {
	var req passwordRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	// The current digest may also arrive the way every protected request
	// carries it.
	current := req.CurrentPassword
	if current == "" {
		current = r.Header.Get("X-Room-Password")
	}

	if err := s.rooms.SetPassword(r.Context(), roomID, current, req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request, roomID string) {
	var req passwordRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ok, err := s.rooms.VerifyPassword(r.Context(), roomID, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "password required", PasswordRequired: true})
		return
	}

	token, err := mintRoomToken(s.secret, roomID, s.cfg.RoomTokenValidityDuration)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func parseInt64(v string, fallback int64) int64 {
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

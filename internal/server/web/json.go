package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/server/services"
)

// maxBodyBytes bounds request bodies; chunks are ~150 KB by design, so
// 10 MB leaves generous headroom for the single-shot sync path.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error            string `json:"error"`
	PasswordRequired bool   `json:"password_required,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody unmarshals the JSON request body into dst, enforcing the
// size limit.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", common.ErrorValidation)
	}
	return nil
}

// respondError maps service-layer errors onto the HTTP taxonomy. An
// *services.OpConflictError becomes a 409 whose body carries the conflict
// payload, not just a message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorPasswordRequired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "password required", PasswordRequired: true})
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrSessionExpired):
		writeError(w, http.StatusBadRequest, "sync session expired or unknown")
	default:
		var conflict *services.OpConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, conflictResponse(conflict))
			return
		}
		s.logger.Error(r.Context(), "internal error", "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

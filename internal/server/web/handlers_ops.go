package web

import (
	"net/http"
)

type submitOpRequest struct {
	FilePathHash string `json:"file_path_hash"`
	OpEncrypted  string `json:"op_encrypted"`
	ClientID     string `json:"client_id"`
	BaseVersion  *int64 `json:"base_version"`
}

func (s *Server) handleSubmitOp(w http.ResponseWriter, r *http.Request, roomID string) {
	var req submitOpRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.ops.Submit(r.Context(), roomID, req.FilePathHash, req.OpEncrypted, req.ClientID, req.BaseVersion)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"seq":             result.Seq,
		"current_version": result.CurrentVersion,
	})
}

func (s *Server) handleFetchOps(w http.ResponseWriter, r *http.Request, roomID string) {
	q := r.URL.Query()
	since := parseInt64(q.Get("since"), 0)
	pathHash := q.Get("file")
	limit := int(parseInt64(q.Get("limit"), 0))

	page, err := s.ops.Fetch(r.Context(), roomID, since, pathHash, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ops":      toOpsJSON(page.Ops),
		"op_seq":   page.OpSeq,
		"has_more": page.HasMore,
	})
}

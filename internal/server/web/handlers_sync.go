package web

import (
	"net/http"

	"github.com/livepaste/livepaste/internal/server/services"
)

type syncBeginRequest struct {
	ClientID    string `json:"client_id"`
	TotalChunks int    `json:"total_chunks"`
	TotalFiles  int    `json:"total_files"`
}

func (s *Server) handleSyncBegin(w http.ResponseWriter, r *http.Request, roomID string) {
	var req syncBeginRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.sync.Begin(r.Context(), roomID, req.ClientID, req.TotalChunks, req.TotalFiles)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_token":      result.Token,
		"expires_in_seconds": int(result.ExpiresIn.Seconds()),
	})
}

type syncChunkRequest struct {
	SessionToken string              `json:"session_token"`
	ChunkIndex   int                 `json:"chunk_index"`
	Files        []upsertFileRequest `json:"files"`
}

func (s *Server) handleSyncChunk(w http.ResponseWriter, r *http.Request, roomID string) {
	var req syncChunkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.sync.Chunk(r.Context(), roomID, req.SessionToken, toInputs(req.Files))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chunks_remaining": result.ChunksRemaining,
		"version":          result.RoomVersion,
	})
}

type syncCompleteRequest struct {
	SessionToken string `json:"session_token"`
}

func (s *Server) handleSyncComplete(w http.ResponseWriter, r *http.Request, roomID string) {
	var req syncCompleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	state, err := s.sync.Complete(r.Context(), roomID, req.SessionToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateJSON(state))
}

type syncAllRequest struct {
	Files []upsertFileRequest `json:"files"`
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request, roomID string) {
	var req syncAllRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	state, err := s.sync.SyncAll(r.Context(), roomID, toInputs(req.Files))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateJSON(state))
}

func toInputs(reqs []upsertFileRequest) []services.FileUpsertInput {
	out := make([]services.FileUpsertInput, 0, len(reqs))
	for i := range reqs {
		out = append(out, reqs[i].toInput())
	}
	return out
}

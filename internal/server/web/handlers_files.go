package web

import (
	"net/http"

	"github.com/livepaste/livepaste/internal/server/services"
)

type upsertFileRequest struct {
	PathHash         string  `json:"path_hash"`
	PathEncrypted    string  `json:"path_encrypted"`
	ContentEncrypted *string `json:"content_encrypted"`
	IsSyncable       *bool   `json:"is_syncable"`
	SizeBytes        int64   `json:"size_bytes"`
}

func (req *upsertFileRequest) toInput() services.FileUpsertInput {
	// is_syncable defaults to true when omitted.
	syncable := true
	if req.IsSyncable != nil {
		syncable = *req.IsSyncable
	}
	return services.FileUpsertInput{
		PathHash:         req.PathHash,
		PathEncrypted:    req.PathEncrypted,
		ContentEncrypted: req.ContentEncrypted,
		IsSyncable:       syncable,
		SizeBytes:        req.SizeBytes,
	}
}

func (s *Server) handleUpsertFile(w http.ResponseWriter, r *http.Request, roomID string) {
	var req upsertFileRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	file, roomVersion, err := s.files.Upsert(r.Context(), roomID, req.toInput())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := struct {
		fileJSON
		RoomVersion int64 `json:"room_version"`
	}{toFileJSON(file), roomVersion}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request, roomID string) {
	version, err := s.files.Delete(r.Context(), roomID, r.PathValue("fileId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "version": version})
}

type snapshotRequest struct {
	ContentEncrypted string `json:"content_encrypted"`
	ThroughSeq       int64  `json:"through_seq"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, roomID string) {
	var req snapshotRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.ops.Snapshot(r.Context(), roomID, r.PathValue("pathHash"), req.ContentEncrypted, req.ThroughSeq)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"version":      result.FileVersion,
		"snapshot_seq": result.SnapshotSeq,
		"room_version": result.RoomVersion,
	})
}

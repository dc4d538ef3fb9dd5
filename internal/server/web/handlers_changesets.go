package web

import (
	"net/http"

	"github.com/livepaste/livepaste/internal/server/services"
)

type changeRequest struct {
	FilePathHash        string  `json:"file_path_hash"`
	FilePathEncrypted   string  `json:"file_path_encrypted"`
	OldContentEncrypted *string `json:"old_content_encrypted"`
	NewContentEncrypted string  `json:"new_content_encrypted"`
	DiffEncrypted       *string `json:"diff_encrypted"`
}

type createChangesetRequest struct {
	AuthorEncrypted  string          `json:"author_encrypted"`
	MessageEncrypted string          `json:"message_encrypted"`
	Changes          []changeRequest `json:"changes"`
}

func (s *Server) handleCreateChangeset(w http.ResponseWriter, r *http.Request, roomID string) {
	var req createChangesetRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	inputs := make([]services.ChangeInput, 0, len(req.Changes))
	for _, ch := range req.Changes {
		inputs = append(inputs, services.ChangeInput{
			FilePathHash:        ch.FilePathHash,
			FilePathEncrypted:   ch.FilePathEncrypted,
			OldContentEncrypted: ch.OldContentEncrypted,
			NewContentEncrypted: ch.NewContentEncrypted,
			DiffEncrypted:       ch.DiffEncrypted,
		})
	}

	cs, err := s.changesets.Create(r.Context(), roomID, req.AuthorEncrypted, req.MessageEncrypted, inputs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangesetJSON(cs))
}

func (s *Server) handleAcceptChangeset(w http.ResponseWriter, r *http.Request, roomID string) {
	s.resolveChangeset(w, r, roomID, true)
}

func (s *Server) handleRejectChangeset(w http.ResponseWriter, r *http.Request, roomID string) {
	s.resolveChangeset(w, r, roomID, false)
}

func (s *Server) resolveChangeset(w http.ResponseWriter, r *http.Request, roomID string, accept bool) {
	cs, err := s.changesets.Resolve(r.Context(), roomID, r.PathValue("cid"), accept)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangesetJSON(cs))
}

func (s *Server) handleAcceptChange(w http.ResponseWriter, r *http.Request, roomID string) {
	s.resolveChange(w, r, roomID, true)
}

func (s *Server) handleRejectChange(w http.ResponseWriter, r *http.Request, roomID string) {
	s.resolveChange(w, r, roomID, false)
}

func (s *Server) resolveChange(w http.ResponseWriter, r *http.Request, roomID string, accept bool) {
	ch, err := s.changesets.ResolveChange(r.Context(), roomID, r.PathValue("chid"), accept)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeJSON(ch))
}

package web

import (
	"time"

	"github.com/livepaste/livepaste/internal/server/models"
	"github.com/livepaste/livepaste/internal/server/services"
)

// Wire DTOs. All user-origin fields are ciphertext; the server neither
// inspects nor re-encodes them.

type fileJSON struct {
	ID               string  `json:"id"`
	PathHash         string  `json:"path_hash"`
	PathEncrypted    string  `json:"path_encrypted"`
	ContentEncrypted *string `json:"content_encrypted"`
	IsSyncable       bool    `json:"is_syncable"`
	SizeBytes        int64   `json:"size_bytes"`
	Version          int64   `json:"version"`
	SnapshotSeq      int64   `json:"snapshot_seq"`
	UpdatedAt        string  `json:"updated_at"`
}

func toFileJSON(f *models.File) fileJSON {
	return fileJSON{
		ID:               f.ID,
		PathHash:         f.PathHash,
		PathEncrypted:    f.PathEncrypted,
		ContentEncrypted: f.ContentEncrypted,
		IsSyncable:       f.IsSyncable,
		SizeBytes:        f.SizeBytes,
		Version:          f.Version,
		SnapshotSeq:      f.SnapshotSeq,
		UpdatedAt:        f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toFilesJSON(list []*models.File) []fileJSON {
	out := make([]fileJSON, 0, len(list))
	for _, f := range list {
		out = append(out, toFileJSON(f))
	}
	return out
}

type opJSON struct {
	Seq          int64  `json:"seq"`
	FilePathHash string `json:"file_path_hash"`
	OpEncrypted  string `json:"op_encrypted"`
	ClientID     string `json:"client_id"`
	BaseVersion  int64  `json:"base_version"`
}

func toOpsJSON(list []*models.Operation) []opJSON {
	out := make([]opJSON, 0, len(list))
	for _, op := range list {
		out = append(out, opJSON{
			Seq:          op.Seq,
			FilePathHash: op.FilePathHash,
			OpEncrypted:  op.OpEncrypted,
			ClientID:     op.ClientID,
			BaseVersion:  op.BaseVersion,
		})
	}
	return out
}

type changeJSON struct {
	ID                  string  `json:"id"`
	ChangesetID         string  `json:"changeset_id"`
	FilePathHash        string  `json:"file_path_hash"`
	FilePathEncrypted   string  `json:"file_path_encrypted"`
	OldContentEncrypted *string `json:"old_content_encrypted"`
	NewContentEncrypted string  `json:"new_content_encrypted"`
	DiffEncrypted       *string `json:"diff_encrypted"`
	Status              string  `json:"status"`
}

type changesetJSON struct {
	ID               string       `json:"id"`
	AuthorEncrypted  string       `json:"author_encrypted"`
	MessageEncrypted string       `json:"message_encrypted"`
	Status           string       `json:"status"`
	CreatedAt        string       `json:"created_at"`
	ResolvedAt       *string      `json:"resolved_at"`
	Changes          []changeJSON `json:"changes"`
}

func toChangeJSON(ch *models.Change) changeJSON {
	return changeJSON{
		ID:                  ch.ID,
		ChangesetID:         ch.ChangesetID,
		FilePathHash:        ch.FilePathHash,
		FilePathEncrypted:   ch.FilePathEncrypted,
		OldContentEncrypted: ch.OldContentEncrypted,
		NewContentEncrypted: ch.NewContentEncrypted,
		DiffEncrypted:       ch.DiffEncrypted,
		Status:              string(ch.Status),
	}
}

func toChangesetJSON(cs *models.Changeset) changesetJSON {
	out := changesetJSON{
		ID:               cs.ID,
		AuthorEncrypted:  cs.AuthorEncrypted,
		MessageEncrypted: cs.MessageEncrypted,
		Status:           string(cs.Status),
		CreatedAt:        cs.CreatedAt.UTC().Format(time.RFC3339),
		Changes:          make([]changeJSON, 0, len(cs.Changes)),
	}
	if cs.ResolvedAt != nil {
		ts := cs.ResolvedAt.UTC().Format(time.RFC3339)
		out.ResolvedAt = &ts
	}
	for _, ch := range cs.Changes {
		out.Changes = append(out.Changes, toChangeJSON(ch))
	}
	return out
}

func toChangesetsJSON(list []*models.Changeset) []changesetJSON {
	out := make([]changesetJSON, 0, len(list))
	for _, cs := range list {
		out = append(out, toChangesetJSON(cs))
	}
	return out
}

type stateJSON struct {
	Version           int64           `json:"version"`
	OpSeq             int64           `json:"op_seq"`
	Files             []fileJSON      `json:"files"`
	DeletedPathHashes []string        `json:"deleted_path_hashes,omitempty"`
	HasMore           bool            `json:"has_more"`
	Changesets        []changesetJSON `json:"changesets"`
}

func toStateJSON(st *services.RoomState) stateJSON {
	return stateJSON{
		Version:           st.Version,
		OpSeq:             st.OpSeq,
		Files:             toFilesJSON(st.Files),
		DeletedPathHashes: st.DeletedPathHashes,
		HasMore:           st.HasMore,
		Changesets:        toChangesetsJSON(st.Changesets),
	}
}

type conflictJSON struct {
	Error          string   `json:"error"`
	CurrentVersion int64    `json:"current_version"`
	BaseVersion    int64    `json:"base_version"`
	ConflictingOps []opJSON `json:"conflicting_ops"`
}

func conflictResponse(e *services.OpConflictError) conflictJSON {
	return conflictJSON{
		Error:          "conflict",
		CurrentVersion: e.CurrentVersion,
		BaseVersion:    e.BaseVersion,
		ConflictingOps: toOpsJSON(e.ConflictingOps),
	}
}

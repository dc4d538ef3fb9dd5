// Package services implements the transactional coordination logic of the
// server: room lifecycle, file storage, delta reads, chunked sync,
// the operation log, and the changeset review workflow.
//
// Every mutating method runs inside one database transaction that starts
// by locking the owning room row, so concurrent mutations on the same room
// are totally ordered and the room version can never be read twice by two
// successful writers.
package services

import (
	"fmt"

	"github.com/livepaste/livepaste/internal/server/models"
)

// FileUpsertInput carries the client payload of a single-file upsert.
// Every user-origin field is ciphertext.
type FileUpsertInput struct {
	PathHash         string
	PathEncrypted    string
	ContentEncrypted *string
	IsSyncable       bool
	SizeBytes        int64
}

// RoomState is the delta-read response body: everything a client
// needs to catch up from a known version.
type RoomState struct {
	Version           int64
	OpSeq             int64
	Files             []*models.File
	DeletedPathHashes []string
	HasMore           bool
	Changesets        []*models.Changeset
}

// ChangeInput is one proposed file replacement in a new changeset.
type ChangeInput struct {
	FilePathHash        string
	FilePathEncrypted   string
	OldContentEncrypted *string
	NewContentEncrypted string
	DiffEncrypted       *string
}

// SubmitOpResult is returned on a successful operation submission.
type SubmitOpResult struct {
	Seq            int64
	CurrentVersion int64
}

// OpConflictError reports an optimistic-concurrency conflict on operation
// submission. It carries the raw conflicting operations so the client can
// rebase; the server performs no transformation.
type OpConflictError struct {
	CurrentVersion int64
	BaseVersion    int64
	ConflictingOps []*models.Operation
}

func (e *OpConflictError) Error() string {
	return fmt.Sprintf("operation conflict: base_version %d behind current_version %d (%d conflicting ops)",
		e.BaseVersion, e.CurrentVersion, len(e.ConflictingOps))
}

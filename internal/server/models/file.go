package models

import "time"

// File is one stored document within a room, keyed externally by
// (room_id, path_hash). PathHash is the SHA-256 of the plaintext path,
// computed client-side; the server treats it as an opaque stable key.
//
// ContentEncrypted is nil for non-syncable (binary) files; SizeBytes is
// kept for display in that case. Version increments on every write.
// SnapshotSeq marks the operation sequence at which the body was last
// materialized from the operation log.
type File struct {
	ID               string
	RoomID           string
	PathHash         string
	PathEncrypted    string
	ContentEncrypted *string
	IsSyncable       bool
	SizeBytes        int64
	Version          int64
	SnapshotSeq      int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Tombstone records that the file with PathHash was removed from the room
// at DeletedAtVersion. Delta-sync clients use tombstones to apply removals.
type Tombstone struct {
	ID               int64
	RoomID           string
	PathHash         string
	DeletedAtVersion int64
	DeletedAt        time.Time
}

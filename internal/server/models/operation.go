package models

import "time"

// Operation is an encrypted edit delta. The payload is opaque to the server
// (the client encodes {position, deleteCount, insertedText} before
// encrypting). Seq is unique and strictly increasing within a room.
// BaseVersion records the file version the submitting client was editing
// against and feeds the optimistic-concurrency conflict check.
type Operation struct {
	ID           int64
	RoomID       string
	FilePathHash string
	Seq          int64
	ClientID     string
	BaseVersion  int64
	OpEncrypted  string
	CreatedAt    time.Time
}

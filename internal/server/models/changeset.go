package models

import "time"

// ChangesetStatus is the lifecycle tag of a proposed multi-file change.
type ChangesetStatus string

// ChangeStatus is the lifecycle tag of a single proposed file replacement.
type ChangeStatus string

const (
	ChangesetPending  ChangesetStatus = "pending"
	ChangesetAccepted ChangesetStatus = "accepted"
	ChangesetRejected ChangesetStatus = "rejected"
	// ChangesetPartial marks a changeset whose children were resolved
	// one by one instead of through a whole-changeset accept/reject.
	ChangesetPartial ChangesetStatus = "partial"

	ChangePending  ChangeStatus = "pending"
	ChangeAccepted ChangeStatus = "accepted"
	ChangeRejected ChangeStatus = "rejected"
)

// Changeset is a named set of proposed file replacements awaiting review.
// Author and message are ciphertext like all user-origin fields.
// ResolvedAt is set exactly when Status leaves pending.
type Changeset struct {
	ID               string
	RoomID           string
	AuthorEncrypted  string
	MessageEncrypted string
	Status           ChangesetStatus
	CreatedAt        time.Time
	ResolvedAt       *time.Time
	Changes          []*Change
}

// Change is one proposed file replacement inside a changeset.
// FilePathHash is the stable upsert key used when the change is accepted.
type Change struct {
	ID                  string
	ChangesetID         string
	FilePathHash        string
	FilePathEncrypted   string
	OldContentEncrypted *string
	NewContentEncrypted string
	DiffEncrypted       *string
	Status              ChangeStatus
}

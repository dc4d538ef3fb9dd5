// Package password wraps the slow hash used for room passwords.
//
// The browser never sends the user password itself: it sends the hex
// SHA-256 digest of it. That digest is what gets hashed here with argon2id
// and stored, and what gets verified on protected requests. Verification is
// constant-time (argon2id compares with a constant-time comparison).
package password

import (
	"fmt"

	"github.com/alexedwards/argon2id"

	"github.com/livepaste/livepaste/internal/common"
)

// MinLength is the minimum accepted length of a presented password digest.
const MinLength = 4

type Hasher struct {
	params *argon2id.Params
}

// NewDefault returns a Hasher with the library defaults, which are safe
// without being prohibitively slow for a per-request check.
func NewDefault() *Hasher {
	return &Hasher{params: argon2id.DefaultParams}
}

// New returns a Hasher with explicit work-factor parameters.
func New(p *argon2id.Params) *Hasher { return &Hasher{params: p} }

// Hash returns the encoded $argon2id$v=19$m=... string for storage.
func (h *Hasher) Hash(digest string) (string, error) {
	if len(digest) < MinLength {
		return "", fmt.Errorf("%w: password too short", common.ErrorValidation)
	}
	return argon2id.CreateHash(digest, h.params)
}

// Verify compares a presented digest with a stored encoded hash.
func (h *Hasher) Verify(digest, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(digest, encodedHash)
}

package store

import "github.com/google/uuid"

// randomHex8 returns an 8-character hex nonce for lock sentinel uniqueness,
// mirroring uuid.uuid4().hex[:8] from the original implementation.
func randomHex8() string {
	id := uuid.New()
	return id.String()[:8]
}

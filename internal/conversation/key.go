// ABOUTME: Deterministic conversation key derivation from chat identity.
// ABOUTME: Same (space, thread, user) always maps to the same backend conversation.

package conversation

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveKey produces the stable key identifying which backend conversation
// a message belongs to. Thread is included so separate threads in one space
// get separate conversations; DMs have no thread and reduce to space|user.
// The separator cannot appear in Chat resource names, so distinct identity
// tuples cannot collide.
func DeriveKey(space, thread, user string) string {
	input := space + "|" + user
	if thread != "" {
		input = space + "|" + thread + "|" + user
	}
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

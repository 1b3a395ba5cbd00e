// ABOUTME: Tests for conversation key derivation.
// ABOUTME: Covers determinism, input sensitivity, and the DM fallback.

package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey("spaces/AAA", "spaces/AAA/threads/T1", "users/1")
	b := DeriveKey("spaces/AAA", "spaces/AAA/threads/T1", "users/1")
	assert.Equal(t, a, b)
}

func TestDeriveKey_HexEncoded(t *testing.T) {
	key := DeriveKey("spaces/AAA", "", "users/1")
	assert.Len(t, key, 64)
	assert.Regexp(t, "^[0-9a-f]+$", key)
}

func TestDeriveKey_DistinctInputsDiffer(t *testing.T) {
	base := DeriveKey("spaces/AAA", "spaces/AAA/threads/T1", "users/1")

	assert.NotEqual(t, base, DeriveKey("spaces/BBB", "spaces/AAA/threads/T1", "users/1"))
	assert.NotEqual(t, base, DeriveKey("spaces/AAA", "spaces/AAA/threads/T2", "users/1"))
	assert.NotEqual(t, base, DeriveKey("spaces/AAA", "spaces/AAA/threads/T1", "users/2"))
}

func TestDeriveKey_DMFallsBackToSpaceAndUser(t *testing.T) {
	dm := DeriveKey("spaces/DM", "", "users/1")
	threaded := DeriveKey("spaces/DM", "spaces/DM/threads/T", "users/1")
	assert.NotEqual(t, dm, threaded)
}

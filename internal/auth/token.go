package auth

import (
	"strings"

	"github.com/google/uuid"
)

// TokenLength is the length of a session token.
const TokenLength = 32

// NewToken returns a random 32-character session token.
//
// The token is opaque: it means nothing on its own and is only valid while
// it matches users.auth_token. Logging out clears the column, which
// revokes it immediately.
func NewToken() string {
	// A v4 UUID without dashes is 32 hex characters from crypto/rand.
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

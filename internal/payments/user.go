package payments

import (
	"errors"
	"strings"
)

// UserIDKey is the only metadata key checkout writes the buyer id under.
const UserIDKey = "userId"

var (
	ErrMissingUserID      = errors.New("payment metadata has no userId")
	ErrNonCanonicalUserID = errors.New("payment metadata uses a non-canonical user id key")
)

var legacyUserIDKeys = []string{"userID", "user_id", "uid"}

// ResolveUserID returns the buyer id from payment metadata. Legacy key
// spellings are reported as ErrNonCanonicalUserID rather than accepted.
func ResolveUserID(metadata map[string]string) (string, error) {
	if id := strings.TrimSpace(metadata[UserIDKey]); id != "" {
		return id, nil
	}
	for _, k := range legacyUserIDKeys {
		if strings.TrimSpace(metadata[k]) != "" {
			return "", ErrNonCanonicalUserID
		}
	}
	return "", ErrMissingUserID
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// ActorMetadataKey is the gRPC metadata key carrying the requesting actor.
const ActorMetadataKey = "x-pass-actor"

// DetectActor gathers host and user information for the audit trail as
// "username@hostname".
func DetectActor() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return currentUser.Username + "@" + hostname, nil
}

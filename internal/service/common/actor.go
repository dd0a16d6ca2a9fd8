//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/energy-sim/internal/api/grpc/control"
)

// DetectCaller gathers host and user information for the server's audit log.
func DetectCaller() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return control.FormatCaller(currentUser.Username, hostname), nil
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectCaller ensures the caller has both a user and a host part.
func TestDetectCaller(t *testing.T) {
	t.Parallel()

	caller, err := DetectCaller()
	require.NoError(t, err)

	user, host, found := strings.Cut(caller, "@")
	require.True(t, found)
	require.NotEmpty(t, user)
	require.NotEmpty(t, host)
}

package confluence_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

func TestAPI_Recording(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]string{"accountId": "abc", "displayName": "Grace"})
	}))
	cassette := filepath.Join(t.TempDir(), "current-user")

	api := newTestAPI(t, server)
	stop, err := api.Recording(cassette, recorder.ModeRecordOnly)
	require.NoError(t, err)

	user, err := api.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.DisplayName)
	require.NoError(t, stop())
	server.Close()

	raw, err := os.ReadFile(cassette + ".yaml")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Authorization", "credentials are scrubbed from the cassette")

	// Same base URL, but the server is gone: the answer has to come from the cassette.
	stop, err = api.Recording(cassette, recorder.ModeReplayOnly)
	require.NoError(t, err)
	defer func() { _ = stop() }()

	user, err = api.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", user.AccountID)
}

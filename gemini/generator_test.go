package gemini_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/gemini"
)

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	cfg := gemini.BuildConfig("You are a helpful technical writer.")
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "You are a helpful technical writer.", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)

	assert.Nil(t, gemini.BuildConfig("").SystemInstruction)
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewClient(context.Background(), "", "")
	assert.ErrorContains(t, err, "API key")
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.True(t, strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent"), r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(b, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"merged document"}]}}]}`)
	}))
	defer server.Close()

	client, err := gemini.NewClient(context.Background(), "test-key", server.URL)
	require.NoError(t, err)

	out, err := gemini.NewGenerator(client, "test-model").Generate(context.Background(), "be helpful", "combine these")
	require.NoError(t, err)
	assert.Equal(t, "merged document", out)

	b, err := json.Marshal(body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "combine these")
	assert.Contains(t, string(b), "be helpful")
}

func TestGenerator_Generate_EmptyPrompt(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewGenerator(nil, "").Generate(context.Background(), "", "")
	assert.Error(t, err)
}

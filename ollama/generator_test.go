package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/ollama"
)

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": "codellama", "response": "merged", "done": true})
	}))
	defer server.Close()

	out, err := ollama.NewGenerator(server.URL+"/", "codellama").Generate(context.Background(), "be helpful", "combine")
	require.NoError(t, err)

	assert.Equal(t, "merged", out)
	assert.Equal(t, map[string]interface{}{
		"model":  "codellama",
		"prompt": "combine",
		"system": "be helpful",
		"stream": false,
	}, got)
}

func TestGenerator_Generate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := ollama.NewGenerator(server.URL, "").Generate(context.Background(), "", "combine")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("error field", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		}))
		defer server.Close()

		_, err := ollama.NewGenerator(server.URL, "").Generate(context.Background(), "", "combine")
		assert.ErrorContains(t, err, "out of memory")
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := ollama.NewGenerator(url, "").Generate(context.Background(), "", "combine")
		assert.Error(t, err)
	})
}

func TestNewGenerator_Defaults(t *testing.T) {
	t.Parallel()

	g := ollama.NewGenerator("", "")
	assert.Equal(t, ollama.DefaultURL, g.BaseURL)
	assert.Equal(t, ollama.DefaultModel, g.Model)
}

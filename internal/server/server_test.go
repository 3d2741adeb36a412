package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/app"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/config"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/seed"
	"github.com/sakif/snippetbase/internal/server"
	"github.com/sakif/snippetbase/internal/storage/memory"
)

const secret = "test-secret-0123456789"

func setupServer(t *testing.T, withAuth bool) (*server.Server, *app.App) {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{Engine: config.EngineMemory},
		Search:  config.SearchConfig{Fuzzy: 0.2},
		Auth:    config.AuthConfig{TokenTTL: time.Hour},
	}
	if withAuth {
		cfg.Auth.TokenSecret = secret
	}
	loader := seed.Static{
		model.Snippets: {{ID: "s1", Title: "Read parquet", Content: "spark.read.parquet(p)", Category: "pyspark"}},
	}
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		app.WithEngine(memory.New()), app.WithSeed(loader))
	require.NoError(t, err)

	ctx := context.Background()
	a.Start(ctx)
	require.Eventually(t, func() bool {
		return a.Collection(model.Snippets).State() == collection.Synced &&
			a.Collection(model.CheatSheets).State() == collection.Synced
	}, 2*time.Second, time.Millisecond)
	t.Cleanup(func() { _ = a.Close(ctx) })

	return server.New(a), a
}

func serve(s *server.Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Health(t *testing.T) {
	s, _ := setupServer(t, false)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["durableStorage"])
	assert.Equal(t, map[string]any{"snippets": "synced", "cheat_sheets": "synced"}, body["collections"])
}

func TestServer_Metrics(t *testing.T) {
	s, _ := setupServer(t, false)

	serve(s, httptest.NewRequest(http.MethodGet, "/api/snippets?q=parquet", nil))
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "snippetbase_http_requests_total")
	assert.Contains(t, body, "snippetbase_search_index_builds_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_OpenWithoutAuth(t *testing.T) {
	s, _ := setupServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/snippets",
		bytes.NewBufferString(`{"title":"t","content":"c","category":"sql"}`))
	rr := serve(s, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestServer_MutationsRequireToken(t *testing.T) {
	s, a := setupServer(t, true)
	create := `{"title":"t","content":"c","category":"sql"}`

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/snippets", bytes.NewBufferString(create))
		rr := serve(s, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	})

	t.Run("delete without token", func(t *testing.T) {
		rr := serve(s, httptest.NewRequest(http.MethodDelete, "/api/snippets/s1", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		_, ok := a.Collection(model.Snippets).Get("s1")
		assert.True(t, ok)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := a.Tokens.Generate("local")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/snippets", bytes.NewBufferString(create))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := serve(s, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("reads and counters stay open", func(t *testing.T) {
		rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/snippets/s1", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		rr = serve(s, httptest.NewRequest(http.MethodPost, "/api/snippets/s1/use", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

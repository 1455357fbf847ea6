package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/schemalens/internal/config"
	"github.com/dkovalev/schemalens/internal/database"
	"github.com/dkovalev/schemalens/internal/errs"
	"github.com/dkovalev/schemalens/internal/logger"
	"github.com/dkovalev/schemalens/internal/render"
	"github.com/dkovalev/schemalens/internal/schema"
)

func testModel() *schema.Model {
	return &schema.Model{
		Tables: []string{"public.customers", "public.orders"},
		Columns: map[string][]schema.ColumnInfo{
			"public.customers": {
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "name", DataType: "text", Nullable: true, Position: 2},
			},
			"public.orders": {
				{Name: "id", DataType: "integer", Position: 1},
				{Name: "customer_id", DataType: "integer", Position: 2},
			},
		},
		PrimaryKeys: map[string]map[string]bool{
			"public.customers": {"id": true},
			"public.orders":    {"id": true},
		},
		ForeignKeys: []schema.ForeignKeyEdge{
			{FromTable: "public.orders", FromColumn: "customer_id", ToTable: "public.customers", ToColumn: "id"},
		},
		Indexes: map[string][]schema.IndexInfo{},
	}
}

func testServer(extract ExtractFunc) *Server {
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	return New(config.Default(), log, extract, nil)
}

func okExtract() ExtractFunc {
	return func(ctx context.Context, cfg *database.Config) (*schema.Model, error) {
		return testModel(), nil
	}
}

func loadSchema(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/schema", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoadSchema(t *testing.T) {
	var got *database.Config
	s := testServer(func(ctx context.Context, cfg *database.Config) (*schema.Model, error) {
		got = cfg
		return testModel(), nil
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	body := `{"host": "db.internal", "port": 5433, "database": "shop", "user": "viewer", "password": "pw"}`
	resp, err := http.Post(ts.URL+"/api/schema", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 2, out["tables"])
	assert.Equal(t, 1, out["foreign_keys"])

	require.NotNil(t, got)
	assert.Equal(t, "db.internal", got.Host)
	assert.Equal(t, 5433, got.Port)
	assert.Equal(t, "shop", got.Database)
}

func TestLoadSchemaDefaults(t *testing.T) {
	var got *database.Config
	s := testServer(func(ctx context.Context, cfg *database.Config) (*schema.Model, error) {
		got = cfg
		return testModel(), nil
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	assert.Equal(t, 5432, got.Port)
	assert.Equal(t, "demo", got.Database)
	assert.Equal(t, "postgres", got.User)
}

func TestEndpointsBeforeLoad(t *testing.T) {
	s := testServer(okExtract())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/schema", "/api/schema/stats", "/api/diagram/erd", "/api/diagram/graph"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode, path)
	}
}

func TestFailedLoadKeepsPriorModel(t *testing.T) {
	fail := false
	s := testServer(func(ctx context.Context, cfg *database.Config) (*schema.Model, error) {
		if fail {
			return nil, errs.New(errs.ErrKindConnectionFailed, "host unreachable")
		}
		return testModel(), nil
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	fail = true
	resp, err := http.Post(ts.URL+"/api/schema", "application/json", strings.NewReader(`{"host":"bad"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// The previously loaded schema is still served.
	resp, err = http.Get(ts.URL + "/api/schema/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats schema.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 2, stats.TableCount)
}

func TestGetSchema(t *testing.T) {
	s := testServer(okExtract())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Get(ts.URL + "/api/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m schema.Model
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, []string{"public.customers", "public.orders"}, m.Tables)
	assert.Len(t, m.ForeignKeys, 1)
}

func TestDiagramEndpoints(t *testing.T) {
	s := testServer(okExtract())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Get(ts.URL + "/api/diagram/erd")
	require.NoError(t, err)
	dotSrc, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(dotSrc), "customer_id → id")

	resp, err = http.Get(ts.URL + "/api/diagram/graph")
	require.NoError(t, err)
	pngData, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(pngData, []byte("\x89PNG")))
}

type failingRenderer struct{}

func (failingRenderer) Render(*schema.Model) (*render.Artifact, error) {
	return nil, errs.New(errs.ErrKindRenderFailed, "drawing backend unavailable")
}

func TestRenderFailureKeepsModel(t *testing.T) {
	s := testServer(okExtract())
	s.erd = failingRenderer{}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Get(ts.URL + "/api/diagram/erd")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The loaded model survives a render failure.
	resp, err = http.Get(ts.URL + "/api/schema")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// fakeStore records published artifacts.
type fakeStore struct {
	keys []string
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStore) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.local/" + key, nil
}

func TestPublish(t *testing.T) {
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	store := &fakeStore{}
	s := New(config.Default(), log, okExtract(), store)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Post(ts.URL+"/api/diagram/erd/publish", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out publishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.URL, "https://store.local/")
	require.Len(t, store.keys, 1)
	assert.Contains(t, store.keys[0], "erd-")
}

func TestPublishWithoutStore(t *testing.T) {
	s := testServer(okExtract())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Post(ts.URL+"/api/diagram/erd/publish", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishUnknownKind(t *testing.T) {
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	s := New(config.Default(), log, okExtract(), &fakeStore{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	loadSchema(t, ts)

	resp, err := http.Post(ts.URL+"/api/diagram/mermaid/publish", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

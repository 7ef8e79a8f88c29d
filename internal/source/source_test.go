package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
)

func TestResolveCharacter(t *testing.T) {
	t.Setenv(CharacterEnv, "")
	assert.Equal(t, "nullref", ResolveCharacter(""))
	assert.Equal(t, "Sorc", ResolveCharacter(" Sorc "))

	t.Setenv(CharacterEnv, "Pala")
	assert.Equal(t, "Pala", ResolveCharacter(""))
	assert.Equal(t, "Sorc", ResolveCharacter("Sorc"))
}

func TestNewHTTPBuildsEndpoint(t *testing.T) {
	t.Setenv(CharacterEnv, "")
	tests := []struct {
		base, character, want string
	}{
		{"http://localhost:8087", "", "http://localhost:8087/debug-data?characterName=nullref"},
		{"http://localhost:8087/", "Hero", "http://localhost:8087/debug-data?characterName=Hero"},
		{"https://bot.local/api", "a b", "https://bot.local/api/debug-data?characterName=a+b"},
		{"http://h/debug-data", "x", "http://h/debug-data?characterName=x"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			h, err := NewHTTP(tt.base, tt.character, 0, logr.Discard())
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Endpoint())
		})
	}
}

func TestNewHTTPRejectsBadURLs(t *testing.T) {
	for _, base := range []string{"", "localhost:8087", "ftp://h", "http://"} {
		_, err := NewHTTP(base, "", 0, logr.Discard())
		assert.Error(t, err, base)
	}
}

func TestHTTPFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get(CharacterParam)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"PlayerUnit":{"Name":"Hero","Life":100},"CollisionGrid":[[1]]}`)
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.URL, "Hero", time.Second, logr.Discard())
	require.NoError(t, err)
	v, err := h.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hero", gotQuery)
	assert.Equal(t, []string{"PlayerUnit", "CollisionGrid"}, v.Keys())
	life, err := snapshot.Lookup(v, "PlayerUnit.Life")
	require.NoError(t, err)
	assert.Equal(t, "100", life.Literal())
}

func TestHTTPFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  error
	}{
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "Character name is required", http.StatusBadRequest)
			},
			target: ErrStatus,
		},
		{
			name: "server error without body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			target: ErrStatus,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"PlayerUnit":`)
			},
		},
		{
			name: "concatenated documents",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"PlayerUnit":{"Life":1}}{"PlayerUnit":{"Life":2}}`)
			},
			target: loader.ErrMalformedJSON,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
			},
			target: loader.ErrEmptyInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			h, err := NewHTTP(srv.URL, "x", time.Second, logr.Discard())
			require.NoError(t, err)
			_, err = h.Fetch(context.Background())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestHTTPFetchHonorsTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	h, err := NewHTTP(srv.URL, "x", 20*time.Millisecond, logr.Discard())
	require.NoError(t, err)
	_, err = h.Fetch(context.Background())
	require.Error(t, err)
}

func TestFileFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debug.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PlayerUnit:\n  Name: Hero\n"), 0o600))

	f := NewFile(path, loader.FormatAuto)
	assert.Equal(t, loader.FormatYAML, f.Format)
	v, err := f.Fetch(context.Background())
	require.NoError(t, err)
	name, err := snapshot.Lookup(v, "PlayerUnit.Name")
	require.NoError(t, err)
	assert.Equal(t, "Hero", name.Text())

	// Re-read on every fetch.
	require.NoError(t, os.WriteFile(path, []byte("PlayerUnit:\n  Name: Villain\n"), 0o600))
	v, err = f.Fetch(context.Background())
	require.NoError(t, err)
	name, _ = snapshot.Lookup(v, "PlayerUnit.Name")
	assert.Equal(t, "Villain", name.Text())
}

func TestFileFetchErrors(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.json"), "").Fetch(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFile("whatever.json", "").Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandler(t *testing.T) {
	src := fetcherFunc(func(context.Context) (snapshot.Value, error) {
		return loader.Load([]byte(`{"b":1,"a":{"z":true,"y":null}}`), loader.FormatJSON)
	})
	srv := httptest.NewServer(NewHandler(src, logr.Discard()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + DebugDataPath)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+DebugDataPath+"?characterName=x", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + DebugDataPath + "?characterName=Hero")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `{"b":1,"a":{"z":true,"y":null}}`, string(body))
}

func TestHandlerRoundTripsThroughHTTPSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debug.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"PlayerUnit":{"Name":"Hero"}}`), 0o600))
	srv := httptest.NewServer(NewHandler(NewFile(path, ""), logr.Discard()))
	defer srv.Close()

	h, err := NewHTTP(srv.URL, "", time.Second, logr.Discard())
	require.NoError(t, err)
	v, err := h.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PlayerUnit"}, v.Keys())

	require.NoError(t, os.Remove(path))
	_, err = h.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrStatus))
}

type fetcherFunc func(ctx context.Context) (snapshot.Value, error)

func (f fetcherFunc) Fetch(ctx context.Context) (snapshot.Value, error) { return f(ctx) }

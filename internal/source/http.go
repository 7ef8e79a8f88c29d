// Package source fetches debug snapshots from a backend endpoint or a local
// file, and serves a file under the backend's endpoint contract.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
)

const (
	// DebugDataPath is the endpoint that returns a snapshot.
	DebugDataPath = "/debug-data"
	// CharacterParam names the query parameter selecting the supervisor.
	CharacterParam = "characterName"
	// DefaultCharacter is used when no character id is configured.
	DefaultCharacter = "nullref"
	// CharacterEnv overrides the default character id.
	CharacterEnv = "KVWATCH_CHARACTER"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 64 << 20
)

var (
	// ErrStatus is returned for a non-2xx response.
	ErrStatus = errors.New("unexpected response status")
	// ErrBodyTooLarge is returned when a response exceeds the read limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// ResolveCharacter picks the character id: the explicit value, then the
// environment, then DefaultCharacter.
func ResolveCharacter(explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv(CharacterEnv)); s != "" {
		return s
	}
	return DefaultCharacter
}

// HTTP fetches snapshots with GET <base>/debug-data?characterName=<id>.
type HTTP struct {
	endpoint  string
	character string
	client    *http.Client
	log       logr.Logger
}

// NewHTTP validates base and returns a source for character. A non-positive
// timeout selects DefaultTimeout.
func NewHTTP(base, character string, timeout time.Duration, log logr.Logger) (*HTTP, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source url %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("source url %q: missing host", base)
	}
	if !strings.HasSuffix(u.Path, DebugDataPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + DebugDataPath
	}
	character = ResolveCharacter(character)
	q := u.Query()
	q.Set(CharacterParam, character)
	u.RawQuery = q.Encode()

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		endpoint:  u.String(),
		character: character,
		client:    &http.Client{Timeout: timeout},
		log:       log.WithName("source").WithValues("url", u.String()),
	}, nil
}

// Endpoint returns the full request URL.
func (h *HTTP) Endpoint() string { return h.endpoint }

// Character returns the resolved character id.
func (h *HTTP) Character() string { return h.character }

// Fetch performs one request and decodes the body.
func (h *HTTP) Fetch(ctx context.Context) (snapshot.Value, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("request debug data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("read response: %w", err)
	}
	h.log.V(1).Info("fetched", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			return snapshot.Value{}, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		}
		return snapshot.Value{}, fmt.Errorf("%w: %s: %s", ErrStatus, resp.Status, msg)
	}
	if len(body) > maxBodyBytes {
		return snapshot.Value{}, ErrBodyTooLarge
	}

	v, err := loader.Load(body, formatFor(resp.Header.Get("Content-Type")))
	if err != nil {
		return snapshot.Value{}, fmt.Errorf("decode debug data: %w", err)
	}
	return v, nil
}

func formatFor(contentType string) loader.Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return loader.FormatJSON
	case strings.Contains(ct, "yaml"):
		return loader.FormatYAML
	case strings.Contains(ct, "toml"):
		return loader.FormatTOML
	}
	return loader.FormatAuto
}

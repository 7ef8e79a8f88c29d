package source

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

// Fetcher is anything that can produce a snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (snapshot.Value, error)
}

// NewHandler serves src under DebugDataPath with the backend's contract: a
// missing characterName is a 400, a fetch failure a 500, otherwise the
// snapshot as JSON in document order.
func NewHandler(src Fetcher, log logr.Logger) http.Handler {
	log = log.WithName("serve")
	mux := http.NewServeMux()
	mux.HandleFunc(DebugDataPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		character := r.URL.Query().Get(CharacterParam)
		if character == "" {
			http.Error(w, "Character name is required", http.StatusBadRequest)
			return
		}
		v, err := src.Fetch(r.Context())
		if err != nil {
			log.Error(err, "load snapshot", "character", character)
			http.Error(w, "Failed to serialize game data", http.StatusInternalServerError)
			return
		}
		body, err := v.MarshalJSON()
		if err != nil {
			log.Error(err, "encode snapshot", "character", character)
			http.Error(w, "Failed to serialize game data", http.StatusInternalServerError)
			return
		}
		log.V(1).Info("served", "character", character, "bytes", len(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	return mux
}

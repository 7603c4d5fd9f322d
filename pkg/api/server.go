package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/lightshow/pkg/show"
)

type RouterConfig struct {
	Debug bool
	// CDNDir is served under /cdn/ when set.
	CDNDir       string
	CacheControl string
	Credentials  map[string]string
}

// NewRouter exposes the datastore read contracts over http.
func NewRouter(store show.Datastore, cfg *RouterConfig) http.Handler {
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if cfg.Debug {
		mux.Use(middleware.Logger)
	}

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Published bundles are public, the read api may be protected
	if cfg.CDNDir != "" {
		fs := http.StripPrefix("/cdn/", http.FileServer(http.Dir(cfg.CDNDir)))
		mux.Get("/cdn/*", func(w http.ResponseWriter, r *http.Request) {
			if cfg.CacheControl != "" {
				w.Header().Set("Cache-Control", cfg.CacheControl)
			}
			if strings.HasSuffix(r.URL.Path, ".json") {
				w.Header().Set("Content-Type", "application/json")
			}
			fs.ServeHTTP(w, r)
		})
	}

	mux.Route("/api", func(r chi.Router) {
		if len(cfg.Credentials) > 0 {
			r.Use(middleware.BasicAuth("lightshow", cfg.Credentials))
		}
		r.Get("/projects/{projectID}", func(w http.ResponseWriter, r *http.Request) {
			v, err := store.Project(r.Context(), chi.URLParam(r, "projectID"))
			respond(w, v, err)
		})
		r.Get("/projects/{projectID}/sections", func(w http.ResponseWriter, r *http.Request) {
			vs, err := store.Sections(r.Context(), chi.URLParam(r, "projectID"))
			if vs == nil {
				vs = []*show.Section{}
			}
			respond(w, vs, err)
		})
		r.Get("/projects/{projectID}/songs", func(w http.ResponseWriter, r *http.Request) {
			vs, err := store.Songs(r.Context(), chi.URLParam(r, "projectID"))
			if vs == nil {
				vs = []*show.Song{}
			}
			respond(w, vs, err)
		})
		r.Get("/songs/{songID}/sections/{sectionID}/sequence", func(w http.ResponseWriter, r *http.Request) {
			v, err := store.Sequence(r.Context(), chi.URLParam(r, "songID"), chi.URLParam(r, "sectionID"))
			respond(w, v, err)
		})
	})
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, show.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case err != nil:
		log.Println("api:", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("api: couldn't write response:", err)
	}
}

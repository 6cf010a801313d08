// Package httpapi exposes the model repository manager over HTTP: the
// repository index, explicit load/unload, repository registration, model
// status queries, and a websocket event feed. Route layout and middleware
// stack follow the same chi conventions as the rest of this codebase.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelrepo/internal/lifecycle"
	"modelrepo/pkg/types"
)

// Service defines the methods NewMux needs from the manager façade. Kept
// narrow and interface-typed so tests can substitute a fake.
type Service interface {
	PollAndUpdate() (types.PollResult, error)
	LoadUnloadModel(name string, action types.ActionType, params map[string]string, unloadDependents bool) (types.ModelVerdict, error)
	RegisterModelRepository(repository string, mapping map[string]string) error
	UnregisterModelRepository(repository string) error
	RepositoryIndex(readyOnly bool) []types.RepositoryIndexEntry
	VersionStates(name string) (map[int64]types.ReadyState, error)
	ModelState(name string, version int64) (types.ReadyState, error)
	UnloadAllModels() error
	StopAllModels() error
	InflightStatus() []types.InflightEntry
	GetModel(name string, version int64) (*lifecycle.Handle, error)
}

// NewMux builds the full router for svc.
func NewMux(svc Service, events *EventFeed) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Route("/v2/repository", func(r chi.Router) {
		r.Get("/index", handleIndex(svc, false))
		r.Post("/index", handleIndex(svc, true))
		r.Post("/register", handleRegister(svc))
		r.Post("/unregister", handleUnregister(svc))
		r.Post("/unload_all", handleUnloadAll(svc))
		r.Post("/models/{name}/load", handleLoad(svc))
		r.Post("/models/{name}/unload", handleUnload(svc))
	})

	r.Get("/v2/models/{name}", handleModelStatus(svc))
	r.Get("/v2/models/{name}/ready", handleModelReady(svc))
	r.Get("/v2/inflight", handleInflight(svc))

	if events != nil {
		r.Get("/v2/events", events.ServeHTTP)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if len(svc.RepositoryIndex(true)) > 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func handleIndex(svc Service, poll bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if poll {
			if _, err := svc.PollAndUpdate(); err != nil {
				writeMappedError(w, err)
				return
			}
		}
		readyOnly := r.URL.Query().Get("ready_only") == "true"
		writeJSON(w, http.StatusOK, svc.RepositoryIndex(readyOnly))
	}
}

func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var body types.ModelLoadRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		v, err := svc.LoadUnloadModel(name, types.Load, body.Parameters, false)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleUnload(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var body types.ModelUnloadRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		v, err := svc.LoadUnloadModel(name, types.Unload, nil, body.UnloadDependents)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleRegister(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.RepositoryRegisterRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := svc.RegisterModelRepository(body.Path, body.Mapping); err != nil {
			writeMappedError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUnregister(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.RepositoryUnregisterRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := svc.UnregisterModelRepository(body.Path); err != nil {
			writeMappedError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUnloadAll(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.UnloadAllModels(); err != nil {
			writeMappedError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleModelStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		versions, err := svc.VersionStates(name)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ModelStatusResponse{Name: name, Versions: versions})
	}
}

func handleModelReady(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		version := int64(-1)
		if v := r.URL.Query().Get("version"); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid version")
				return
			}
			version = parsed
		}
		state, err := svc.ModelState(name, version)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		if state != types.StateReady {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func handleInflight(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.InflightStatus())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/utils"
	"github.com/go-chi/chi/v5"
)

// Pinger is a dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps   map[string]Pinger
	router *chi.Mux
}

// NewHealthHandler probes the named dependencies. A nil entry is reported
// as disabled.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	h := &HealthHandler{
		deps: deps,
	}

	r := chi.NewRouter()
	r.Get("/", h.handleHealthCheck)
	r.Get("/dependencies", h.handleDependencies)

	h.router = r
	return h
}

func (h *HealthHandler) Router() *chi.Mux {
	return h.router
}

// handleHealthCheck godoc
// @Summary  Liveness check
// @Tags     health
// @Produce  json
// @Success  200 {object} models.BaseResponse
// @Router   /health [get]
func (h *HealthHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   common.AppName,
	}

	utils.WriteJSON(w, http.StatusOK, response)
}

// handleDependencies godoc
// @Summary  Dependency health
// @Description Pings the database and the optional Redis and NATS connections. A missing database is reported as degraded since runs still write the fallback file.
// @Tags     health
// @Produce  json
// @Security ApiKeyAuth
// @Success  200 {object} models.BaseResponse
// @Failure  503 {object} models.BaseResponse
// @Router   /health/dependencies [get]
func (h *HealthHandler) handleDependencies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	deps := make(map[string]map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if dep == nil {
			deps[name] = map[string]string{"status": "disabled"}
			if name == "database" {
				status = "degraded"
			}
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			deps[name] = map[string]string{"status": "unhealthy", "error": err.Error()}
			status = "unhealthy"
			continue
		}
		deps[name] = map[string]string{"status": "healthy"}
	}

	response := map[string]any{
		"status":       status,
		"timestamp":    time.Now().UTC(),
		"dependencies": deps,
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	utils.WriteJSON(w, code, response)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/utils"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/work"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// RunStarter queues ingest runs
type RunStarter interface {
	StartRun(ctx context.Context, site string, trigger constants.ActionType) (string, error)
}

// RunTracker answers status queries about runs
type RunTracker interface {
	Status(ctx context.Context, runID string) (models.RunStatusResponse, error)
	ListRunning(ctx context.Context) ([]work.RunningRun, error)
}

// RunParams is the body of a run request. Site defaults to the configured site.
type RunParams struct {
	Site string `json:"site" validate:"omitempty,min=1,max=64" example:"cryptopanic"`
}

// RunAccepted is returned when a run is queued
type RunAccepted struct {
	RunID string `json:"run_id"`
	Site  string `json:"site"`
}

type RunHandler struct {
	starter     RunStarter
	tracker     RunTracker
	defaultSite string
	validate    *validator.Validate
	router      *chi.Mux
}

func NewRunHandler(starter RunStarter, tracker RunTracker, defaultSite string) *RunHandler {
	h := &RunHandler{
		starter:     starter,
		tracker:     tracker,
		defaultSite: defaultSite,
		validate:    validator.New(),
	}

	r := chi.NewRouter()
	r.Post("/", h.handleStartRun)
	r.Get("/", h.handleListRunning)
	r.Get("/{runID}", h.handleGetRun)

	h.router = r
	return h
}

func (h *RunHandler) Router() *chi.Mux {
	return h.router
}

// handleStartRun godoc
// @Summary  Queue an ingest run
// @Tags     runs
// @Accept   json
// @Produce  json
// @Security ApiKeyAuth
// @Param    body body RunParams false "Site to run"
// @Success  202 {object} models.BaseResponse{data=RunAccepted}
// @Failure  400 {object} models.ErrorResponse
// @Failure  404 {object} models.ErrorResponse
// @Failure  409 {object} models.ErrorResponse
// @Router   /runs [post]
func (h *RunHandler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var p RunParams
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	defer r.Body.Close()

	if err := h.validate.Struct(p); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Site == "" {
		p.Site = h.defaultSite
	}

	runID, err := h.starter.StartRun(r.Context(), p.Site, constants.RunFromAPI)
	switch {
	case errors.Is(err, crawler.ErrUnknownSite):
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, common.ErrRunInProgress):
		utils.WriteError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, work.ErrQueueFull):
		utils.WriteError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("site", p.Site).Msg("Failed to queue run")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to queue run")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, RunAccepted{RunID: runID, Site: p.Site})
}

// handleListRunning godoc
// @Summary  List locked sites
// @Tags     runs
// @Produce  json
// @Security ApiKeyAuth
// @Success  200 {object} models.BaseResponse{data=[]work.RunningRun}
// @Router   /runs [get]
func (h *RunHandler) handleListRunning(w http.ResponseWriter, r *http.Request) {
	runs, err := h.tracker.ListRunning(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list running runs")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []work.RunningRun{}
	}
	utils.WriteJSON(w, http.StatusOK, runs)
}

// handleGetRun godoc
// @Summary  Run status
// @Tags     runs
// @Produce  json
// @Security ApiKeyAuth
// @Param    runID path string true "Run id"
// @Success  200 {object} models.BaseResponse{data=models.RunStatusResponse}
// @Failure  404 {object} models.ErrorResponse
// @Router   /runs/{runID} [get]
func (h *RunHandler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	status, err := h.tracker.Status(r.Context(), runID)
	if errors.Is(err, work.ErrRunNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("runID", runID).Msg("Failed to get run status")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get run status")
		return
	}
	utils.WriteJSON(w, http.StatusOK, status)
}

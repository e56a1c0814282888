package handler

import (
	"errors"
	"net/http"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DataSourceHandler serves the ingested records of one record type
type DataSourceHandler struct {
	repo       services.DataSourceService
	recordType common.RecordType
	router     *chi.Mux
}

func NewDataSourceHandler(repo services.DataSourceService, recordType common.RecordType) *DataSourceHandler {
	h := &DataSourceHandler{
		repo:       repo,
		recordType: recordType,
	}

	r := chi.NewRouter()
	r.Get("/", h.handleListDataSources)
	r.Get("/watermark", h.handleWatermark)
	r.Get("/{id}", h.handleGetDataSource)

	h.router = r
	return h
}

func (h *DataSourceHandler) Router() *chi.Mux {
	return h.router
}

func (h *DataSourceHandler) available(w http.ResponseWriter) bool {
	if h.repo == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, common.ErrStoreUnavailable.Error())
		return false
	}
	return true
}

// handleListDataSources godoc
// @Summary  List ingested records
// @Tags     datasources
// @Produce  json
// @Security ApiKeyAuth
// @Param    page  query int false "Page number" default(1)
// @Param    limit query int false "Page size"   default(20)
// @Success  200 {object} models.BasePaginationResponse{data=[]models.DataSource}
// @Failure  503 {object} models.ErrorResponse
// @Router   /datasources [get]
func (h *DataSourceHandler) handleListDataSources(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	page, limit := utils.PageParams(r, defaultPageSize, maxPageSize)

	items, err := h.repo.List(r.Context(), h.recordType, limit, (page-1)*limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list data sources")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list data sources")
		return
	}

	total, err := h.repo.Count(r.Context(), h.recordType)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count data sources")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to count data sources")
		return
	}

	if items == nil {
		items = []models.DataSource{}
	}
	utils.WritePagination(w, http.StatusOK, items, page, limit, total)
}

// handleWatermark godoc
// @Summary  Current watermark
// @Description Newest known publish time. Only articles strictly newer than it are ingested by the next run.
// @Tags     datasources
// @Produce  json
// @Security ApiKeyAuth
// @Success  200 {object} models.BaseResponse{data=models.WatermarkResponse}
// @Failure  503 {object} models.ErrorResponse
// @Router   /datasources/watermark [get]
func (h *DataSourceHandler) handleWatermark(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	mark, err := h.repo.GetLatestPublishedAt(r.Context(), h.recordType)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read watermark")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to read watermark")
		return
	}

	count, err := h.repo.Count(r.Context(), h.recordType)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count data sources")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to count data sources")
		return
	}

	response := models.WatermarkResponse{
		Type:  h.recordType.String(),
		Count: count,
	}
	if t, ok := mark.Get(); ok {
		response.Watermark = &t
	}
	utils.WriteJSON(w, http.StatusOK, response)
}

// handleGetDataSource godoc
// @Summary  Get one record
// @Tags     datasources
// @Produce  json
// @Security ApiKeyAuth
// @Param    id path string true "Record id"
// @Success  200 {object} models.BaseResponse{data=models.DataSource}
// @Failure  404 {object} models.ErrorResponse
// @Router   /datasources/{id} [get]
func (h *DataSourceHandler) handleGetDataSource(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	id := chi.URLParam(r, "id")
	ds, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Data source not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to get data source")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get data source")
		return
	}

	utils.WriteJSON(w, http.StatusOK, ds)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"partstream/fitment-engine/internal/auth"
	"partstream/fitment-engine/internal/common"
	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// respondMappingError maps the core error taxonomy to HTTP statuses.
func respondMappingError(w http.ResponseWriter, initTime time.Time, err error) {
	var validationErr *fitment.ValidationError
	var importErr *fitment.ImportError

	switch {
	case errors.Is(err, fitment.ErrNotFound):
		common.RespondError(w, initTime, err, constants.MsgMappingNotFound, http.StatusNotFound)
	case errors.Is(err, fitment.ErrConflict):
		common.RespondError(w, initTime, err, constants.MsgVersionConflict, http.StatusConflict)
	case errors.Is(err, fitment.ErrStoreUnavailable):
		common.RespondError(w, initTime, err, constants.MsgStoreUnavailable, http.StatusServiceUnavailable)
	case errors.Is(err, fitment.ErrImportBusy):
		common.RespondError(w, initTime, err, constants.MsgImportBusy, http.StatusTooManyRequests)
	case errors.As(err, &validationErr):
		common.RespondError(w, initTime, err, validationErr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &importErr):
		common.RespondError(w, initTime, err, constants.MsgImportUnreadable, http.StatusBadRequest)
	default:
		common.RespondError(w, initTime, err, "An unexpected error occurred", http.StatusInternalServerError)
	}
}

// CreateMappingHandler handles POST /api/v1/mappings
func CreateMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.CreateMappingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidRequest, http.StatusBadRequest)
			return
		}

		mapping, err := deps.Services.Mapping.CreateMapping(r.Context(), req, auth.GetActorID(r.Context()))
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		deps.Metrics.MappingMutationsTotal.WithLabelValues(string(constants.ChangeCreated)).Inc()
		common.RespondSuccess(w, initTime, "Mapping created", dtos.NewMappingResponse(mapping), http.StatusCreated)
	}
}

// GetMappingHandler handles GET /api/v1/mappings/{mappingID}
func GetMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		mapping, err := deps.Services.Mapping.GetMapping(r.Context(), chi.URLParam(r, "mappingID"))
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "", dtos.NewMappingResponse(mapping))
	}
}

// UpdateMappingHandler handles PUT /api/v1/mappings/{mappingID}
func UpdateMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.UpdateMappingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidRequest, http.StatusBadRequest)
			return
		}

		mapping, err := deps.Services.Mapping.UpdateMapping(r.Context(), chi.URLParam(r, "mappingID"), req, auth.GetActorID(r.Context()))
		if err != nil {
			if errors.Is(err, fitment.ErrConflict) {
				deps.Metrics.MappingConflictsTotal.Inc()
			}
			respondMappingError(w, initTime, err)
			return
		}

		deps.Metrics.MappingMutationsTotal.WithLabelValues(string(constants.ChangeUpdated)).Inc()
		common.RespondSuccess(w, initTime, "Mapping updated", dtos.NewMappingResponse(mapping))
	}
}

// DeleteMappingHandler handles DELETE /api/v1/mappings/{mappingID}
func DeleteMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		err := deps.Services.Mapping.DeleteMapping(r.Context(), chi.URLParam(r, "mappingID"), auth.GetActorID(r.Context()))
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		deps.Metrics.MappingMutationsTotal.WithLabelValues(string(constants.ChangeDeleted)).Inc()
		common.RespondSuccess(w, initTime, "Mapping deleted", nil)
	}
}

// ValidateMappingHandler handles POST /api/v1/mappings/{mappingID}/validate
func ValidateMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		mapping, err := deps.Services.Mapping.ValidateMapping(r.Context(), chi.URLParam(r, "mappingID"), auth.GetActorID(r.Context()))
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		deps.Metrics.MappingMutationsTotal.WithLabelValues(string(constants.ChangeValidated)).Inc()
		common.RespondSuccess(w, initTime, "Mapping validated", dtos.NewMappingResponse(mapping))
	}
}

// InvalidateMappingHandler handles POST /api/v1/mappings/{mappingID}/invalidate
func InvalidateMappingHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		mapping, err := deps.Services.Mapping.InvalidateMapping(r.Context(), chi.URLParam(r, "mappingID"), auth.GetActorID(r.Context()))
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		deps.Metrics.MappingMutationsTotal.WithLabelValues(string(constants.ChangeInvalidated)).Inc()
		common.RespondSuccess(w, initTime, "Mapping invalidated", dtos.NewMappingResponse(mapping))
	}
}

// GetMappingHistoryHandler handles GET /api/v1/mappings/{mappingID}/history
func GetMappingHistoryHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "page_size", constants.DefaultPageSize)

		history, err := deps.Services.Mapping.GetMappingHistory(r.Context(), chi.URLParam(r, "mappingID"), page, pageSize)
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "", history)
	}
}

// SearchMappingsHandler handles GET /api/v1/mappings/search
func SearchMappingsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q := dtos.SearchMappingsQuery{
			ProductQuery: r.URL.Query().Get("product_query"),
			Page:         queryInt(r, "page", 1),
			PageSize:     queryInt(r, "page_size", constants.DefaultPageSize),
		}
		if v := r.URL.Query().Get("is_validated"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				common.RespondError(w, initTime, err, "is_validated must be a boolean", http.StatusBadRequest)
				return
			}
			q.IsValidated = &parsed
		}
		if v := r.URL.Query().Get("is_manual"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				common.RespondError(w, initTime, err, "is_manual must be a boolean", http.StatusBadRequest)
				return
			}
			q.IsManual = &parsed
		}

		result, err := deps.Services.Mapping.SearchMappings(r.Context(), q)
		if err != nil {
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "", result)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

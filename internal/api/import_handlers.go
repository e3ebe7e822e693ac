package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"partstream/fitment-engine/internal/auth"
	"partstream/fitment-engine/internal/common"
	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// StartImportHandler handles POST /api/v1/imports.
//
// By default the import runs inline and the final report is returned in the
// response. With ?async=1 the import is dispatched as a background job and
// the response carries only the job id for later polling.
func StartImportHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidRequest, http.StatusBadRequest)
			return
		}
		if req.FilePath == "" {
			err := &fitment.ValidationError{Field: "file_path", Reason: "must not be empty"}
			common.RespondError(w, initTime, err, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		actorID := auth.GetActorID(r.Context())

		if r.URL.Query().Get("async") == "1" {
			jobID, err := deps.Services.ImportRunner.StartImport(r.Context(), req.FilePath, req.Params, actorID)
			if err != nil {
				respondMappingError(w, initTime, err)
				return
			}
			common.RespondSuccess(w, initTime, "Import job started", map[string]string{"job_id": jobID}, http.StatusAccepted)
			return
		}

		if err := req.Params.Normalize(); err != nil {
			verr := &fitment.ValidationError{Field: "params", Reason: err.Error()}
			common.RespondError(w, initTime, verr, verr.Error(), http.StatusUnprocessableEntity)
			return
		}

		report, err := deps.Services.Import.ImportFromFile(r.Context(), req.FilePath, req.Params, actorID)
		if err != nil {
			var importErr *fitment.ImportError
			if errors.As(err, &importErr) {
				common.RespondError(w, initTime, err, importErr.Error(), http.StatusUnprocessableEntity)
				return
			}
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Import finished", report)
	}
}

// GetImportJobHandler handles GET /api/v1/imports/{jobID}
func GetImportJobHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		job, err := deps.Services.ImportRunner.GetJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			if errors.Is(err, fitment.ErrNotFound) {
				common.RespondError(w, initTime, err, constants.MsgImportJobNotFound, http.StatusNotFound)
				return
			}
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "", job)
	}
}

// CancelImportJobHandler handles POST /api/v1/imports/{jobID}/cancel
func CancelImportJobHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := deps.Services.ImportRunner.CancelImport(chi.URLParam(r, "jobID")); err != nil {
			if errors.Is(err, fitment.ErrNotFound) {
				common.RespondError(w, initTime, err, "No running import job with that id", http.StatusNotFound)
				return
			}
			respondMappingError(w, initTime, err)
			return
		}

		common.RespondSuccess(w, initTime, "Cancellation requested", nil)
	}
}

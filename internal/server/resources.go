package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/validation"
	"go.uber.org/zap"
)

var errStorageDisabled = errors.New("storage is not configured")

type segmentResponse struct {
	Segment  projection.Segment      `json:"segment"`
	Warnings []validation.FieldError `json:"warnings,omitempty"`
}

type validationErrorResponse struct {
	Error    string                  `json:"error"`
	Problems []validation.FieldError `json:"problems"`
}

func (h *handler) requireStore(w http.ResponseWriter, op string) bool {
	if h.store == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, errStorageDisabled.Error(), op)
		return false
	}
	return true
}

// storeError records the outcome of a store call and answers failures.
func (h *handler) storeError(w http.ResponseWriter, operation string, err error, op string) bool {
	h.metrics.ObserveStore(operation, err)
	if err == nil {
		return false
	}
	h.respondErrorWithOp(w, statusForError(err), err.Error(), op)
	return true
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// checkSegment runs field validation against the stored segments. It
// answers 422 and returns false when a problem is blocking.
func (h *handler) checkSegment(w http.ResponseWriter, r *http.Request, segment projection.Segment, op string) ([]validation.FieldError, bool) {
	existing, err := h.store.ListSegments(r.Context())
	if h.storeError(w, "ListSegments", err, op) {
		return nil, false
	}

	problems := validation.ValidateSegment(segment, existing)
	if validation.HasErrors(problems) {
		h.logger.Warn("segment rejected",
			zap.String("op", op),
			zap.String("segment", segment.Name),
			zap.Int("problems", len(problems)),
		)
		h.writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
			Error:    fmt.Sprintf("segment %q is invalid", segment.Name),
			Problems: problems,
		})
		return nil, false
	}
	return problems, true
}

func (h *handler) handleListSegments(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListSegments"
	if !h.requireStore(w, op) {
		return
	}

	segments, err := h.store.ListSegments(r.Context())
	if h.storeError(w, "ListSegments", err, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"segments": segments})
}

func (h *handler) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreateSegment"
	if !h.requireStore(w, op) {
		return
	}

	var segment projection.Segment
	if !h.decodeBody(w, r, &segment, op) {
		return
	}
	warnings, ok := h.checkSegment(w, r, segment, op)
	if !ok {
		return
	}

	err := h.store.CreateSegment(r.Context(), &segment)
	if h.storeError(w, "CreateSegment", err, op) {
		return
	}
	h.writeJSON(w, http.StatusCreated, segmentResponse{Segment: segment, Warnings: warnings})
}

func (h *handler) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetSegment"
	if !h.requireStore(w, op) {
		return
	}

	segment, err := h.store.GetSegment(r.Context(), r.PathValue("id"))
	if h.storeError(w, "GetSegment", err, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, segmentResponse{Segment: *segment})
}

func (h *handler) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpdateSegment"
	if !h.requireStore(w, op) {
		return
	}

	var segment projection.Segment
	if !h.decodeBody(w, r, &segment, op) {
		return
	}
	segment.ID = r.PathValue("id")

	warnings, ok := h.checkSegment(w, r, segment, op)
	if !ok {
		return
	}

	err := h.store.UpdateSegment(r.Context(), &segment)
	if h.storeError(w, "UpdateSegment", err, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, segmentResponse{Segment: segment, Warnings: warnings})
}

func (h *handler) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteSegment"
	if !h.requireStore(w, op) {
		return
	}

	err := h.store.DeleteSegment(r.Context(), r.PathValue("id"))
	if h.storeError(w, "DeleteSegment", err, op) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListModels"
	if !h.requireStore(w, op) {
		return
	}

	models, err := h.store.ListModels(r.Context())
	if h.storeError(w, "ListModels", err, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

// handleSaveModel stores a model. A model posted without segments captures
// the currently stored segment set.
func (h *handler) handleSaveModel(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSaveModel"
	if !h.requireStore(w, op) {
		return
	}

	var model storage.Model
	if !h.decodeBody(w, r, &model, op) {
		return
	}

	params, err := normalizeParameters(model.Parameters)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}
	model.Parameters = params

	if len(model.Segments) == 0 {
		segments, err := h.store.ListSegments(r.Context())
		if h.storeError(w, "ListSegments", err, op) {
			return
		}
		model.Segments = segments
	}
	if _, err := validation.ValidateSegments(model.Segments); err != nil {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}

	err = h.store.SaveModel(r.Context(), &model)
	if h.storeError(w, "SaveModel", err, op) {
		return
	}
	h.writeJSON(w, http.StatusCreated, model)
}

func (h *handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetModel"
	if !h.requireStore(w, op) {
		return
	}

	model, err := h.store.GetModel(r.Context(), r.PathValue("id"))
	if h.storeError(w, "GetModel", err, op) {
		return
	}
	h.writeJSON(w, http.StatusOK, model)
}

func (h *handler) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteModel"
	if !h.requireStore(w, op) {
		return
	}

	err := h.store.DeleteModel(r.Context(), r.PathValue("id"))
	if h.storeError(w, "DeleteModel", err, op) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// normalizeParameters canonicalises profile names and rejects a horizon
// that is not positive.
func normalizeParameters(params projection.Parameters) (projection.Parameters, error) {
	if params.Months <= 0 {
		return params, &projection.ParameterError{Field: "months", Value: params.Months, Err: projection.ErrInvalidMonths}
	}
	seasonality, err := projection.ParseSeasonality(string(params.Seasonality))
	if err != nil {
		return params, err
	}
	opexType, err := projection.ParseOpexType(string(params.OperatingExpense.Type))
	if err != nil {
		return params, err
	}
	params.Seasonality = seasonality
	params.OperatingExpense.Type = opexType
	return params, nil
}

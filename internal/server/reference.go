package server

import (
	"net/http"
	"strings"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/pkg/catalog"
	"github.com/iwvelando/revenue-forecast/pkg/demographics"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"go.uber.org/zap"
)

type demographicSegmentsRequest struct {
	Dataset string                `json:"dataset"`
	Kind    string                `json:"kind"`
	Records []demographics.Record `json:"records"`
	// Replace swaps the stored segment set for the generated one.
	Replace bool `json:"replace"`
}

type demographicSegmentsResponse struct {
	Segments []projection.Segment   `json:"segments"`
	Insights demographics.Insights `json:"insights"`
	Stored   bool                  `json:"stored"`
}

func (h *handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCatalog"

	templates, err := catalog.Templates()
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (h *handler) handleDatasets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": demographics.DatasetNames()})
}

func (h *handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleInsights"

	name := strings.TrimSpace(r.URL.Query().Get("dataset"))
	if name == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "dataset query parameter is required", op)
		return
	}
	dataset, err := demographics.LoadDataset(name)
	if err != nil {
		h.respondErrorWithOp(w, statusForError(err), err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset":  dataset.Name,
		"country":  dataset.Country,
		"kind":     dataset.Kind,
		"insights": demographics.ComputeInsights(dataset.Records),
	})
}

// handleDemographicSegments turns a bundled dataset or posted records into
// segments, optionally replacing the stored set.
func (h *handler) handleDemographicSegments(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDemographicSegments"

	var req demographicSegmentsRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}

	source := config.DemographicsConfig{Dataset: req.Dataset, Kind: req.Kind, Records: req.Records}
	if err := source.Validate(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	records, kind, err := source.Load()
	if err != nil {
		h.respondErrorWithOp(w, statusForError(err), err.Error(), op)
		return
	}

	response := demographicSegmentsResponse{
		Segments: demographics.ToSegments(records, kind, config.NewID),
		Insights: demographics.ComputeInsights(records),
	}

	if req.Replace {
		if !h.requireStore(w, op) {
			return
		}
		stored, err := h.store.ReplaceSegments(r.Context(), response.Segments)
		if h.storeError(w, "ReplaceSegments", err, op) {
			return
		}
		response.Segments = stored
		response.Stored = true
		h.logger.Info("segments replaced from demographics",
			zap.String("op", op),
			zap.String("kind", string(kind)),
			zap.Int("segments", len(stored)),
		)
	}

	h.writeJSON(w, http.StatusOK, response)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/cache"
	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/internal/optimizer"
	"github.com/iwvelando/revenue-forecast/pkg/format"
	"github.com/iwvelando/revenue-forecast/pkg/optimization"
	"github.com/iwvelando/revenue-forecast/pkg/output"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
	"github.com/iwvelando/revenue-forecast/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var errDemographicsFile = errors.New("demographics file is not accepted over the API; use dataset or records")

type forecastResponse struct {
	Model         string                    `json:"model"`
	Period        projection.Period         `json:"period"`
	ExchangeRate  float64                   `json:"exchangeRate"`
	Summary       projection.Summary        `json:"summary"`
	Rows          []forecastRow             `json:"rows"`
	Yearly        []yearRow                 `json:"yearly"`
	Scenarios     []scenarioMetrics         `json:"scenarios"`
	Breakdown     []projection.SegmentTotal `json:"breakdown"`
	Profitability validation.Assessment     `json:"profitability"`
	Optimizations []optimization.Summary    `json:"optimizations,omitempty"`
	CSV           string                    `json:"csv"`
	Warnings      []string                  `json:"warnings,omitempty"`
	Duration      string                    `json:"duration"`
	Config        map[string]interface{}    `json:"config,omitempty"`
	ConfigYAML    string                    `json:"configYaml,omitempty"`
}

type forecastRow struct {
	Label             string  `json:"label"`
	Revenue           float64 `json:"revenue"`
	RevenueUSD        float64 `json:"revenueUsd"`
	COGS              float64 `json:"cogs"`
	OperatingExpenses float64 `json:"operatingExpenses"`
	NetProfit         float64 `json:"netProfit"`
	ProfitMargin      float64 `json:"profitMargin"`
	Volume            float64 `json:"volume"`
}

type yearRow struct {
	Year         int     `json:"year"`
	Revenue      float64 `json:"revenue"`
	NetProfit    float64 `json:"netProfit"`
	ProfitMargin float64 `json:"profitMargin"`
	Volume       float64 `json:"volume"`
}

type scenarioMetrics struct {
	Name                       string             `json:"name"`
	VolumeGrowthMultiplier     float64            `json:"volumeGrowthMultiplier"`
	PriceMultiplier            float64            `json:"priceMultiplier"`
	CostMultiplier             float64            `json:"costMultiplier"`
	OperatingExpenseMultiplier float64            `json:"operatingExpenseMultiplier"`
	Summary                    projection.Summary `json:"summary"`
	RevenueVsBase              float64            `json:"revenueVsBase"`
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err), op)
		return
	}

	options := forecastOptions{Optimize: coerceBool(r.FormValue("optimize"))}
	response, status, err := h.computeForecast(r.Context(), configBytes, configMap, start, options, "upload")
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleForecastEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecastEditor"

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", op)
			return
		}
		configPayload = cfgMap
	}

	options := forecastOptions{}
	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", op)
			return
		}
		if optimizeVal, ok := optsMap["optimize"]; ok {
			options.Optimize = coerceBool(optimizeVal)
		}
	}

	key, cacheable := h.cacheKey(configPayload, options)
	if cacheable {
		if cached, ok := h.cacheGet(r.Context(), key); ok {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(cached); err != nil {
				h.logger.Error("failed to write cached response", zap.String("op", op), zap.Error(err))
			}
			return
		}
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse configuration: %v", err), op)
		return
	}

	response, status, err := h.computeForecast(r.Context(), configBytes, configMap, start, options, "editor")
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	encoded, err := json.Marshal(response)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode response: %v", err), op)
		return
	}
	if cacheable {
		h.cacheSet(r.Context(), key, encoded)
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(encoded, '\n')); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// configKeyOrder is the top-level key order of exported configurations.
// Keys not listed follow alphabetically.
var configKeyOrder = []string{"model", "segments", "templates", "demographics", "scenarios", "optimizers", "storage", "cache", "logging", "output"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range configKeyOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

// computeForecast loads, validates and runs a configuration. On failure it
// returns the HTTP status to answer with.
func (h *handler) computeForecast(ctx context.Context, configBytes []byte, configMap map[string]interface{}, start time.Time, opts forecastOptions, source string) (response *forecastResponse, status int, err error) {
	segments := 0
	defer func() {
		h.metrics.ObserveForecast(source, segments, time.Since(start), err)
	}()

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, http.StatusUnprocessableEntity, fmt.Errorf("invalid configuration: %w", err)
	}
	// Segment resolution would open the file on this host.
	if cfg.Demographics != nil && strings.TrimSpace(cfg.Demographics.File) != "" {
		return nil, http.StatusUnprocessableEntity, errDemographicsFile
	}

	warnings := cfg.ValidateConfiguration()

	in, err := forecast.InputFromConfig(*cfg, h.now())
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	segments = len(in.Segments)

	result, err := forecast.Compute(ctx, h.logger, in)
	if err != nil {
		return nil, statusForError(err), fmt.Errorf("failed to compute forecast: %w", err)
	}

	if opts.Optimize && len(cfg.Optimizers) > 0 {
		runner, err := optimizer.NewRunner(h.logger, in, cfg.Optimizers)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to initialize optimizer: %w", err)
		}
		optimizationResult, err := runner.Run(ctx)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("optimizer execution failed: %w", err)
		}
		optimizationResult.Apply(result)
		for _, summary := range result.Optimizations {
			h.metrics.OptimizerSolutions.WithLabelValues(fmt.Sprintf("%t", summary.Converged)).Inc()
		}
	}

	window, err := projection.ParsePeriod(cfg.Output.Window)
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	view, err := projection.SlicePeriod(result.Projection, window)
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}

	csvData, err := output.CSVString(result, output.Options{Period: cfg.Output.Period, Window: window})
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to render csv: %w", err)
	}

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	elapsed := time.Since(start)
	response = &forecastResponse{
		Model:         result.Name,
		Period:        window,
		ExchangeRate:  result.ExchangeRate,
		Summary:       result.Summary,
		Rows:          buildRows(view, result.ExchangeRate),
		Yearly:        buildYearly(result.Yearly),
		Scenarios:     buildScenarioMetrics(result.Scenarios),
		Breakdown:     result.Breakdown,
		Profitability: validation.ProfitabilityCheck(in.Segments, in.Parameters.OperatingExpense),
		Optimizations: result.Optimizations,
		CSV:           csvData,
		Warnings:      warnings,
		Duration:      elapsed.String(),
		Config:        configMap,
		ConfigYAML:    string(configBytes),
	}

	h.logger.Info("forecast computed",
		zap.String("op", "server.computeForecast"),
		zap.String("source", source),
		zap.Int("segments", segments),
		zap.Int("scenarios", len(response.Scenarios)),
		zap.Int("rows", len(response.Rows)),
		zap.Duration("duration", elapsed),
	)

	return response, http.StatusOK, nil
}

func (h *handler) cacheKey(configPayload map[string]interface{}, opts forecastOptions) (string, bool) {
	if h.cache == nil {
		return "", false
	}
	parts := map[string]interface{}{
		"config":   configPayload,
		"optimize": opts.Optimize,
		"version":  h.version,
	}
	// Without a start date the labels follow the current month.
	if configuredStartDate(configPayload) == "" {
		parts["startMonth"] = h.now().UTC().Format(config.DateTimeLayout)
	}
	key, err := cache.Key(parts)
	if err != nil {
		h.logger.Warn("failed to derive cache key", zap.String("op", "server.cacheKey"), zap.Error(err))
		return "", false
	}
	return key, true
}

func configuredStartDate(configPayload map[string]interface{}) string {
	model, ok := configPayload["model"].(map[string]interface{})
	if !ok {
		return ""
	}
	startDate, _ := model["startDate"].(string)
	return strings.TrimSpace(startDate)
}

func (h *handler) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	value, err := h.cache.Get(ctx, key)
	switch {
	case err == nil:
		h.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return value, true
	case errors.Is(err, cache.ErrMiss):
		h.metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		h.metrics.CacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("cache lookup failed", zap.String("op", "server.cacheGet"), zap.Error(err))
	}
	return nil, false
}

func (h *handler) cacheSet(ctx context.Context, key string, value []byte) {
	if err := h.cache.Set(ctx, key, value, h.cacheTTL); err != nil {
		h.logger.Warn("cache store failed", zap.String("op", "server.cacheSet"), zap.Error(err))
	}
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func buildRows(view projection.PeriodView, rate float64) []forecastRow {
	rows := make([]forecastRow, 0, len(view.Monthly)+len(view.Daily))
	for _, month := range view.Monthly {
		rows = append(rows, forecastRow{
			Label:             month.Month,
			Revenue:           month.Revenue,
			RevenueUSD:        format.Convert(month.Revenue, rate),
			COGS:              month.COGS,
			OperatingExpenses: month.OperatingExpenses,
			NetProfit:         month.NetProfit,
			ProfitMargin:      month.ProfitMargin,
			Volume:            month.Volume,
		})
	}
	for _, day := range view.Daily {
		rows = append(rows, forecastRow{
			Label:             day.Label,
			Revenue:           day.Revenue,
			RevenueUSD:        format.Convert(day.Revenue, rate),
			COGS:              day.COGS,
			OperatingExpenses: day.OperatingExpenses,
			NetProfit:         day.NetProfit,
			ProfitMargin:      day.ProfitMargin,
			Volume:            day.Volume,
		})
	}
	return rows
}

func buildYearly(years []projection.YearRecord) []yearRow {
	rows := make([]yearRow, 0, len(years))
	for _, year := range years {
		rows = append(rows, yearRow{
			Year:         year.Year,
			Revenue:      year.Revenue,
			NetProfit:    year.NetProfit,
			ProfitMargin: year.ProfitMargin,
			Volume:       year.Volume,
		})
	}
	return rows
}

func buildScenarioMetrics(results []projection.ScenarioResult) []scenarioMetrics {
	var baseRevenue float64
	for _, result := range results {
		if result.Scenario.Name == projection.ScenarioBaseCase {
			baseRevenue = result.Summary.TotalRevenue
		}
	}

	metrics := make([]scenarioMetrics, 0, len(results))
	for _, result := range results {
		metric := scenarioMetrics{
			Name:                       result.Scenario.Name,
			VolumeGrowthMultiplier:     result.Scenario.VolumeGrowthMultiplier,
			PriceMultiplier:            result.Scenario.PriceMultiplier,
			CostMultiplier:             result.Scenario.CostMultiplier,
			OperatingExpenseMultiplier: result.Scenario.OperatingExpenseMultiplier,
			Summary:                    result.Summary,
		}
		if baseRevenue != 0 {
			metric.RevenueVsBase = (result.Summary.TotalRevenue - baseRevenue) / baseRevenue * 100
		}
		metrics = append(metrics, metric)
	}
	return metrics
}

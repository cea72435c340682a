package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/config"
	"github.com/iwvelando/revenue-forecast/internal/forecast"
	"github.com/iwvelando/revenue-forecast/pkg/testutil"
	"go.uber.org/zap"
)

func TestApplyOutputOverrides(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		period         string
		expectedFormat string
		expectedPeriod string
		wantErr        bool
	}{
		{"No overrides keep config", "", "", "pretty", "yearly", false},
		{"Format override", "csv", "", "csv", "yearly", false},
		{"Case and space insensitive", " JSON ", " Monthly ", "json", "monthly", false},
		{"Unknown format rejected", "xml", "", "pretty", "yearly", true},
		{"Unknown period rejected", "", "weekly", "pretty", "yearly", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := config.OutputConfig{Format: "pretty", Period: "yearly"}
			err := applyOutputOverrides(&out, tt.format, tt.period)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyOutputOverrides() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Format != tt.expectedFormat || out.Period != tt.expectedPeriod {
				t.Errorf("output = %s/%s, expected %s/%s", out.Format, out.Period, tt.expectedFormat, tt.expectedPeriod)
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	conf := testutil.LoadConfig(t, "../../test/test_config.yaml")
	result, err := forecast.GetForecastWithFixedTime(context.Background(), zap.NewNop(), *conf,
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetForecastWithFixedTime() error = %v", err)
	}

	tests := []struct {
		format string
		prefix string
	}{
		{"csv", "Year,"},
		{"json", "{"},
		{"yaml", "metadata:"},
		{"pretty", "--- Revenue forecast for APAC Identity Test Model ---"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeOutput(&buf, config.OutputConfig{Format: tt.format, Period: "yearly"}, result)
			if err != nil {
				t.Fatalf("writeOutput() error = %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.prefix) {
				t.Errorf("output starts %q, expected prefix %q", firstLine(buf.String()), tt.prefix)
			}
		})
	}

	if err := writeOutput(&bytes.Buffer{}, config.OutputConfig{Format: "csv", Window: "3Q"}, result); err == nil {
		t.Error("expected error for unknown window")
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

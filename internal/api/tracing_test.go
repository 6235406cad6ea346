package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zombar/arpolarity/internal/tracing"
)

// TestAnalyzeTracing tests that the analyze handler creates a child span
func TestAnalyzeTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	handler, _, _ := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"كلام ممتاز"}`))
	req.Header.Set("Content-Type", "application/json")

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-request")
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleAnalyze(w, req)
	span.End()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	spans := exporter.GetSpans()
	var analyzeSpan *tracetest.SpanStub
	for i := range spans {
		if spans[i].Name == "polarity.analyze" {
			analyzeSpan = &spans[i]
			break
		}
	}
	if analyzeSpan == nil {
		t.Fatalf("polarity.analyze span not found, have %v", getSpanNames(spans))
	}

	if analyzeSpan.Parent.SpanID() != span.SpanContext().SpanID() {
		t.Error("polarity.analyze span is not a child of the request span")
	}

	want := map[string]bool{"text.length": false, "polarity": false, "unlisted": false}
	for _, attr := range analyzeSpan.Attributes {
		if _, ok := want[string(attr.Key)]; ok {
			want[string(attr.Key)] = true
		}
		if attr.Key == "polarity" && attr.Value.AsString() != "Pos" {
			t.Errorf("Expected polarity Pos, got %s", attr.Value.AsString())
		}
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("%s attribute not found on polarity.analyze span", key)
		}
	}
}

// TestCreateBatchTracing tests that batch attributes land on the request span
func TestCreateBatchTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	h, _, _ := setupTestHandler(t)
	traced := tracing.HTTPMiddleware("test")(h.mux)

	req := httptest.NewRequest(http.MethodPost, "/api/batches", strings.NewReader(`{"sentences":[{"sentence":"ممتاز"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	traced.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %v", getSpanNames(spans))
	}
	var hasBatchID bool
	for _, attr := range spans[0].Attributes {
		if attr.Key == "batch.id" {
			hasBatchID = true
		}
	}
	if !hasBatchID {
		t.Error("batch.id attribute not found on request span")
	}
}

// getSpanNames returns a list of span names for debugging
func getSpanNames(spans tracetest.SpanStubs) []string {
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name
	}
	return names
}

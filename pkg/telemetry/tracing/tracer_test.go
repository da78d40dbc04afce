package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"sdrf-pipelines/sdrfcheck/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(&config.TracingConfig{Enabled: false, ServiceName: "test"}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("disabled tracer reports Enabled")
	}

	ctx, span := tr.Start(context.Background(), "op")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop span should not carry a trace ID")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "dev"); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := NewWithExporter(nil, "dev", tracetest.NewInMemoryExporter()); err == nil {
		t.Error("NewWithExporter(nil) should fail")
	}
}

func TestNewWithExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := &config.TracingConfig{Enabled: true, ServiceName: "test", SampleRatio: 1}

	tr, err := NewWithExporter(cfg, "dev", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	ctx, span := tr.Start(context.Background(), "engine.evaluate")
	span.SetAttributes(RunAttributes("run-1", "human", "a.tsv")...)
	span.SetAttributes(TableAttributes(3, 12)...)
	SetStatus(span, errors.New("boom"))
	if TraceID(ctx) == "" {
		t.Error("sampled span should carry a trace ID")
	}
	span.End()

	if err := tr.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "engine.evaluate" {
		t.Errorf("span name = %q", got.Name)
	}
	if got.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status.Code)
	}

	want := map[attribute.Key]attribute.Value{
		AttrTemplate: attribute.StringValue("human"),
		AttrRunID:    attribute.StringValue("run-1"),
		AttrRows:     attribute.IntValue(3),
	}
	for _, kv := range got.Attributes {
		if v, ok := want[kv.Key]; ok {
			if v != kv.Value {
				t.Errorf("%s = %v, want %v", kv.Key, kv.Value.Emit(), v.Emit())
			}
			delete(want, kv.Key)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
}

func TestSetStatus_OK(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	SetStatus(span, nil)
	span.End()

	if got := exporter.GetSpans()[0].Status.Code; got != codes.Ok {
		t.Errorf("status = %v, want Ok", got)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "ParentBased{root:AlwaysOnSampler"},
		{ratio: 0, want: "ParentBased{root:AlwaysOffSampler"},
		{ratio: 0.25, want: "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		got := createSampler(tt.ratio).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("createSampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}

func TestResultAttributes(t *testing.T) {
	attrs := ResultAttributes(2, 1, true)
	if len(attrs) != 3 {
		t.Fatalf("got %d attributes", len(attrs))
	}
	if attrs[2].Value.AsBool() != true {
		t.Error("incomplete attribute not set")
	}
}

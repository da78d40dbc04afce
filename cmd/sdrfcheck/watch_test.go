package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sdrf-pipelines/sdrfcheck/pkg/config"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/logging"
	"sdrf-pipelines/sdrfcheck/pkg/telemetry/tracing"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func TestIsTemplatePath(t *testing.T) {
	tests := map[string]bool{
		"templates/human.yaml": true,
		"templates/lab.YML":    true,
		"PXD1.sdrf.tsv":        false,
		"notes":                false,
	}
	for path, want := range tests {
		if got := isTemplatePath(path); got != want {
			t.Errorf("isTemplatePath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.tsv")

	if !sameFile(a, filepath.Join(dir, ".", "a.tsv")) {
		t.Error("sameFile() = false for equivalent paths")
	}
	if sameFile(a, filepath.Join(dir, "b.tsv")) {
		t.Error("sameFile() = true for different files")
	}
}

func TestWatcher_OnChange(t *testing.T) {
	env := newTestEnv(t, "offline")
	a := env.writeSDRF(t, "a.sdrf.tsv", minimumRow("s1", "1"))
	b := env.writeSDRF(t, "b.sdrf.tsv", minimumRow("s1", "1"))
	c := env.writeSDRF(t, "c.sdrf.tsv", minimumRow("s1", "1"))

	cfg := config.Default()
	cfg.Ontology.Mode = config.OntologyModeOffline
	p, err := newPipeline(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	logger, err := logging.New(logging.Config{Level: "error", Writer: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	tracer, err := tracing.New(&config.TracingConfig{}, Version)
	if err != nil {
		t.Fatal(err)
	}

	var validated []string
	w := &watcher{
		p:        p,
		logger:   logger,
		tracer:   tracer,
		template: "minimum",
		files:    []string{a, b, c},
		out: func(file string, _ any) {
			validated = append(validated, filepath.Base(file))
		},
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{name: "every changed file once", paths: []string{b, a}, want: []string{"a.sdrf.tsv", "b.sdrf.tsv"}},
		{name: "template change validates all", paths: []string{a, filepath.Join(env.dir, "lab.yaml")}, want: []string{"a.sdrf.tsv", "b.sdrf.tsv", "c.sdrf.tsv"}},
		{name: "unrelated file", paths: []string{filepath.Join(env.dir, "other.sdrf.tsv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validated = nil
			if err := w.onChange(context.Background(), tt.paths); err != nil {
				t.Fatalf("onChange() error = %v", err)
			}
			if !reflect.DeepEqual(validated, tt.want) {
				t.Errorf("validated %v, want %v", validated, tt.want)
			}
		})
	}
}

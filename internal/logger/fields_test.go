package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFieldsFallsBackToNop(t *testing.T) {
	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	enriched.Info("another log")
}

func TestRunAndStageFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	log := WithStage(WithRun(zap.New(core), "run-1"), "skills_gap")

	log.Info("stage completed")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx[FieldRunID] != "run-1" || ctx[FieldStage] != "skills_gap" {
		t.Fatalf("unexpected fields %+v", ctx)
	}
}

func TestWithAIFieldsSkipsEmpty(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithAIFields(zap.New(core), "gemini", "").Info("call")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field, got %+v", ctx)
	}
	if _, ok := ctx[FieldModel]; ok {
		t.Fatalf("expected empty model to be omitted, got %+v", ctx)
	}
}

func TestNewBuildsBothEncodings(t *testing.T) {
	for _, json := range []bool{false, true} {
		log, err := New(json, true)
		if err != nil {
			t.Fatalf("json=%v: %v", json, err)
		}
		if !log.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("json=%v: expected debug level enabled", json)
		}
	}
}

package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  model  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "model" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	WithFields(logger, zap.String(FieldModelID, "abc")).Info("model loaded")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if got := entries[0].ContextMap()[FieldModelID]; got != "abc" {
		t.Fatalf("expected model id abc, got %q", got)
	}

	if WithFields(logger) != logger {
		t.Fatalf("expected the same logger when no fields are given")
	}

	fallback := WithFields(nil, zap.String(FieldStage, "train"))
	if fallback == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	fallback.Info("does not panic")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "gemini-2.5-flash").Info("assessing")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("expected model gemini-2.5-flash, got %q", ctx[FieldModel])
	}

	if fields := CommonFields(" model ", ""); len(fields) != 1 || fields[0].String != "model" {
		t.Fatalf("expected only the provider field, got %+v", fields)
	}
}

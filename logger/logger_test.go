package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewParsesLevel(t *testing.T) {
	log, err := New("warn", "json")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info must be disabled at warn level")
	}
	if !log.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("error must be enabled at warn level")
	}
}

func TestNewRejectsUnknownValues(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

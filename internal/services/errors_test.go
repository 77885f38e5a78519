package services_test

import (
	"errors"
	"strings"
	"testing"

	"codesummary/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "file_analysis", "complete", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"file_analysis", "complete", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestPermanentClassification(t *testing.T) {
	if !services.Permanent(services.Wrap(services.ErrConfiguration, "llm", "build", "missing model", nil)) {
		t.Fatal("expected configuration errors to be permanent")
	}
	if services.Permanent(services.Wrap(services.ErrTransient, "llm", "complete", "reset", errors.New("io"))) {
		t.Fatal("expected transient errors to be retryable")
	}
	if services.Permanent(nil) {
		t.Fatal("nil error must not be permanent")
	}
}

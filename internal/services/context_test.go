package services_test

import (
	"context"
	"testing"

	"codesummary/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithNode(ctx, "pkg/a.py")
	ctx = services.WithDepth(ctx, 3)
	ctx = services.WithStage(ctx, "file_analysis")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if node, ok := services.NodeFromContext(ctx); !ok || node != "pkg/a.py" {
		t.Fatalf("unexpected node: %v %v", node, ok)
	}
	if depth, ok := services.DepthFromContext(ctx); !ok || depth != 3 {
		t.Fatalf("unexpected depth: %v %v", depth, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "file_analysis" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithNode(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage for blank value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id for blank value")
	}
	if _, ok := services.NodeFromContext(ctx); ok {
		t.Fatal("expected no node for blank value")
	}
	if _, ok := services.DepthFromContext(ctx); ok {
		t.Fatal("expected no depth when unset")
	}
}

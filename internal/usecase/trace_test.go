package usecase

import (
	"context"
	"fmt"
	"testing"
)

func TestStartUsecaseSpan_WithoutParentIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	got, span := startUsecaseSpan(ctx, "usecase.Test", matchAttr("m-1"))
	defer span.End()

	if got != ctx {
		t.Fatalf("expected context to be returned unchanged")
	}
	if span.IsRecording() {
		t.Fatalf("expected non-recording span without a parent")
	}
}

func TestIsClientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: minute must be >= 0", ErrInvalidInput), true},
		{fmt.Errorf("%w: player sent off", ErrRuleViolation), true},
		{fmt.Errorf("%w: match finalized", ErrStateConflict), true},
		{fmt.Errorf("%w: match=m-1", ErrNotFound), true},
		{fmt.Errorf("%w: redis down", ErrDependencyUnavailable), false},
		{fmt.Errorf("get match by id: boom"), false},
	}
	for _, tt := range tests {
		if got := isClientError(tt.err); got != tt.want {
			t.Fatalf("isClientError(%v): expected %t, got %t", tt.err, tt.want, got)
		}
	}
}

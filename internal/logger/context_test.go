package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	l := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Error("expected the stored logger back")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Error("expected a usable fallback logger")
	}
}

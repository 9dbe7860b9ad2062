package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()
	shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown func is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

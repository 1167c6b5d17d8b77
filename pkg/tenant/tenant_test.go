package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := FromContext(ctx); got != nil {
		t.Fatalf("expected nil tenant, got %+v", got)
	}

	info := &Info{
		ID:          uuid.New(),
		Name:        "Acme Bakery",
		Environment: EnvironmentSandbox,
		Status:      StatusConnected,
	}
	ctx = NewContext(ctx, info)

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("expected tenant info, got nil")
	}
	if got.Name != "Acme Bakery" {
		t.Errorf("name = %q, want %q", got.Name, "Acme Bakery")
	}
	if got.Environment != EnvironmentSandbox {
		t.Errorf("environment = %q, want %q", got.Environment, EnvironmentSandbox)
	}
}

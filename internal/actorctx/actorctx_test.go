package actorctx

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithRequestID(WithUserID(context.Background(), "u-1"), "req-1")

	if id, ok := UserIDFrom(ctx); !ok || id != "u-1" {
		t.Fatalf("UserIDFrom = %q, %v", id, ok)
	}
	if id, ok := RequestIDFrom(ctx); !ok || id != "req-1" {
		t.Fatalf("RequestIDFrom = %q, %v", id, ok)
	}
}

func TestEmptyValuesAreAbsent(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("expected no user id on a bare context")
	}
	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("expected empty user id to read as absent")
	}
}

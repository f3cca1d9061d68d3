package replies

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testSuppressor(t *testing.T) *RedisSuppressor {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSuppressorFromClient(client)
}

func TestSuppressionRoundTrip(t *testing.T) {
	s := testSuppressor(t)
	ctx := context.Background()

	suppressed, err := s.IsSuppressed(ctx, "email", "prospect@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if suppressed {
		t.Fatal("fresh address should not be suppressed")
	}

	if err := s.Suppress(ctx, "email", "prospect@example.com"); err != nil {
		t.Fatalf("Suppress: %v", err)
	}

	suppressed, err = s.IsSuppressed(ctx, "email", "prospect@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !suppressed {
		t.Error("address should be suppressed after Suppress")
	}
}

func TestSuppressionNormalizesAddresses(t *testing.T) {
	s := testSuppressor(t)
	ctx := context.Background()

	if err := s.Suppress(ctx, "Email", "  Prospect@Example.COM "); err != nil {
		t.Fatalf("Suppress: %v", err)
	}

	suppressed, err := s.IsSuppressed(ctx, "email", "prospect@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !suppressed {
		t.Error("lookup should match regardless of case and whitespace")
	}
}

func TestSuppressionIsPerChannel(t *testing.T) {
	s := testSuppressor(t)
	ctx := context.Background()

	if err := s.Suppress(ctx, "email", "prospect@example.com"); err != nil {
		t.Fatalf("Suppress: %v", err)
	}

	suppressed, err := s.IsSuppressed(ctx, "sms", "prospect@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if suppressed {
		t.Error("suppression on one channel must not leak to another")
	}
}

func TestSuppressEmptyAddressRejected(t *testing.T) {
	s := testSuppressor(t)
	if err := s.Suppress(context.Background(), "email", "   "); err == nil {
		t.Error("expected an error for an empty address")
	}
}

func TestSuppressIsIdempotent(t *testing.T) {
	s := testSuppressor(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Suppress(ctx, "email", "prospect@example.com"); err != nil {
			t.Fatalf("Suppress #%d: %v", i+1, err)
		}
	}

	suppressed, err := s.IsSuppressed(ctx, "email", "prospect@example.com")
	if err != nil {
		t.Fatalf("IsSuppressed: %v", err)
	}
	if !suppressed {
		t.Error("address should remain suppressed")
	}
}

package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"bikeToWorkAPI/internal/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClerkIDPrefix marks profiles created by tests so cleanup never touches real rows.
const ClerkIDPrefix = "user_test_"

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and removes
// test profiles when the test finishes. Tests are skipped without a database.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}
	if err := schema.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		cleanupTestDB(t, pool)
		pool.Close()
	})
	return pool
}

func cleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, "DELETE FROM profiles WHERE clerk_id LIKE $1", ClerkIDPrefix+"%"); err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
}

// NewClerkID returns a unique clerk id carrying ClerkIDPrefix.
func NewClerkID(name string) string {
	return ClerkIDPrefix + name + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// PNG is the smallest byte sequence sniffed as image/png.
func PNG() []byte {
	return []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
}

// ClerkWebhookPayload builds a Clerk user event body for eventType.
func ClerkWebhookPayload(eventType, clerkID, username string) []byte {
	switch eventType {
	case "user.deleted":
		return fmt.Appendf(nil, `{
			"data": {"id": %q, "deleted": true},
			"object": "event",
			"type": %q
		}`, clerkID, eventType)
	default:
		return fmt.Appendf(nil, `{
			"data": {
				"id": %q,
				"first_name": "Test",
				"last_name": "Rider",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "%s@example.com",
					"verification": {"status": "verified"}
				}],
				"primary_email_address_id": "email_123",
				"username": %q,
				"image_url": "https://example.com/image.jpg"
			},
			"object": "event",
			"type": %q
		}`, clerkID, username, username, eventType)
	}
}

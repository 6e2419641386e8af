package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glabrego/deck-cli/internal/relay"
	"github.com/glabrego/deck-cli/internal/storage"
	"github.com/glabrego/deck-cli/internal/timeline"
)

func TestIntegration_UniverseFeedFromLiveRelay(t *testing.T) {
	if os.Getenv("DECK_INTEGRATION") != "1" {
		t.Skip("set DECK_INTEGRATION=1 to run integration tests")
	}
	relayURL := os.Getenv("DECK_INTEGRATION_RELAY")
	if relayURL == "" {
		relayURL = "wss://relay.damus.io"
	}

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "deck-integration.db"))
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	pool := relay.NewPool()
	t.Cleanup(func() { _ = pool.Close() })
	if err := pool.Connect(ctx, relayURL); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	deck := NewDeck(pool, storage.NewKeyStore(repo, 5*time.Second), repo)
	deck.Restore(ctx)
	tl, ok := deck.Timeline(0)
	if !ok {
		t.Fatal("expected a universe timeline after restore")
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for !tl.Loaded() {
		select {
		case <-ctx.Done():
			t.Fatalf("relay did not finish the initial load: %v", ctx.Err())
		case <-ticker.C:
			deck.Poll(ctx)
		}
	}
	if len(tl.Notes()) == 0 {
		t.Fatal("expected at least one note from the relay")
	}

	stored, err := repo.QueryNotes(ctx, timeline.FiltersFor(tl.Kind), 10)
	if err != nil {
		t.Fatalf("QueryNotes returned error: %v", err)
	}
	if len(stored) == 0 {
		t.Fatal("expected received notes to be persisted")
	}
}

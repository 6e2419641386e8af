package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/deck-cli/internal/app"
	"github.com/glabrego/deck-cli/internal/config"
	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/relay"
	"github.com/glabrego/deck-cli/internal/storage"
	"github.com/glabrego/deck-cli/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if cfg.LogPath != "" {
		logFile, err := logs.OpenFile(cfg.LogPath)
		if err != nil {
			log.Fatalf("log file error: %v", err)
		}
		defer logFile.Close()
		logs.Init(logFile)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatalf("storage dir error: %v", err)
	}
	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		log.Fatalf("storage write check failed (%v). Verify DECK_DB_PATH is writable: %s", err, cfg.DBPath)
	}

	pool := relay.NewPool()
	defer pool.Close()

	deck := app.NewDeck(pool, storage.NewKeyStore(repo, 5*time.Second), repo)
	restoreStart := time.Now()
	deck.Restore(ctx)
	logs.Info.Printf("deck: restored %d columns, %d feeds in %s", deck.Columns().Len(), deck.Cache().Len(), time.Since(restoreStart))

	model := tui.NewModel(deck, tui.Options{
		Relays:          cfg.Relays,
		Connector:       pool,
		PollInterval:    cfg.PollInterval,
		ConnectedRelays: pool.Relays,
		InfoFetcher:     relay.NewInfoClient(nil),
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

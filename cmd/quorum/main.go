// Command quorum is the entry point for the quorum CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/quorum-cli/internal/core/services"
	"github.com/custodia-labs/quorum-cli/internal/logger"
	"github.com/custodia-labs/quorum-cli/internal/sources"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// maxSessions caps in-memory chat sessions for long-running serve modes.
const maxSessions = 256

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	sourceConfigs := store.SourceConfigStore()

	registry := services.NewSourceRegistry()

	// Build each configured source. A broken source logs and is skipped
	// so one bad config does not take down the others.
	configs, err := sourceConfigs.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	for _, cfg := range configs {
		src, err := sources.Build(ctx, cfg)
		if err != nil {
			logger.Warn("Skipping source %s: %v", cfg.ID, err)
			continue
		}
		registry.Register(src)
	}

	// The LLM is optional at startup; commands that need it report the
	// configuration error themselves.
	llm, err := ai.CreateLLMService(file.LLMSettings(configStore))
	if err != nil {
		logger.Warn("LLM unavailable: %v", err)
	}
	if llm != nil {
		defer llm.Close()
	}

	svc := &cli.Services{
		Config:        configStore,
		SourceConfigs: sourceConfigs,
		Registry:      registry,
	}
	if llm != nil {
		svc.Chat = services.NewChatService(
			registry,
			services.NewPlanner(llm),
			services.NewEngine(registry),
			services.NewSynthesizer(llm),
			memory.NewBoundedSessionStore(maxSessions),
		)
	}

	cli.SetServices(svc)
	cli.SetVersion(version)
	return cli.Execute(ctx)
}

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/macropower/tidy/pkg/config"
	"github.com/macropower/tidy/pkg/engine"
	"github.com/macropower/tidy/pkg/note"
	"github.com/macropower/tidy/pkg/query"
)

// session bundles the engine pieces a command needs. The vault is not
// indexed yet; callers decide whether to load synchronously or in the
// background.
type session struct {
	cfg    *config.Config
	vault  *note.Vault
	runner *engine.Runner
}

// loadConfig resolves the config path and loads the file. With no explicit
// path, the default config is written first if none exists.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.GetPath()

		err := config.WriteDefault(configPath)
		if err != nil {
			slog.Warn("write default config", slog.Any("error", err))
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}

	return cfg, nil
}

// newSession builds the vault, query provider, state store, and runner for a
// loaded config. A non-empty vaultPath overrides the configured vault.
func newSession(ctx context.Context, cfg *config.Config, vaultPath string) (*session, error) {
	if vaultPath != "" {
		cfg.Vault = vaultPath
	}

	vault, err := note.NewVault(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	provider, err := query.NewCELProvider(vault)
	if err != nil {
		return nil, fmt.Errorf("create query provider: %w", err)
	}

	store := engine.NewStore(cfg.StatePath())

	err = store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	runner := engine.NewRunner(vault, provider, store, cfg.Rulesets,
		engine.WithExclude(cfg.Exclude),
	)

	return &session{cfg: cfg, vault: vault, runner: runner}, nil
}

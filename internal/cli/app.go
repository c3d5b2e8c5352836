package cli

import (
	"context"
	"fmt"

	"github.com/pathwayhr/pathway/internal/audit"
	"github.com/pathwayhr/pathway/internal/automation"
	"github.com/pathwayhr/pathway/internal/block"
	"github.com/pathwayhr/pathway/internal/config"
	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/notify"
	"github.com/pathwayhr/pathway/internal/process"
	"github.com/pathwayhr/pathway/internal/program"
	"github.com/pathwayhr/pathway/internal/ratelimit"
	"github.com/pathwayhr/pathway/internal/role"
	"github.com/pathwayhr/pathway/internal/store"
	"github.com/pathwayhr/pathway/internal/store/filestore"
	"github.com/pathwayhr/pathway/internal/store/pgstore"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./pathway.yaml, ~/.pathway/config.yaml)")
}

// cliActor is the identity CLI commands run as. Local shell access is
// treated as administrative access.
var cliActor = model.Actor{UserID: "cli", Role: role.AdminSlug}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

// loadValidConfig loads the config and rejects it if validation finds
// anything wrong.
func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("config error: %s\n", e.Error())
		}
		return nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}
	return cfg, nil
}

// openStore opens the configured document store backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Interface, error) {
	switch cfg.Store.Backend {
	case "postgres":
		st, err := pgstore.Open(ctx, cfg.Store.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		dir := cfg.Store.Dir
		if dir == "" {
			var err error
			dir, err = filestore.DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("store dir: %w", err)
			}
		}
		st, err := filestore.New(dir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return st, nil
	}
}

// app is the fully wired engine behind every command.
type app struct {
	cfg       *config.Config
	store     store.Interface
	roles     *role.Store
	audit     *audit.Writer
	blocks    *block.Service
	programs  *program.Service
	processes *process.Engine
	logger    *logging.Logger
}

// buildApp loads the config, opens the store, and wires the services.
// Callers must Close() the app when done.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadValidConfig()
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger()
	roles := role.NewStore(cfg.Roles)
	auditw := audit.NewWriter(st, logger)

	rules, err := cfg.LimitRules()
	if err != nil {
		st.Close()
		return nil, err
	}
	limiter := ratelimit.New(rules)

	blocks := block.NewService(st, roles, logger)
	programs := program.NewService(st, blocks, roles, auditw, logger)
	evaluator := automation.NewEvaluator(st, notify.NewLogDispatcher(logger), logger)
	processes := process.NewEngine(st, roles, limiter, auditw, evaluator, logger)

	return &app{
		cfg:       cfg,
		store:     st,
		roles:     roles,
		audit:     auditw,
		blocks:    blocks,
		programs:  programs,
		processes: processes,
		logger:    logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

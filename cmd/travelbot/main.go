package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dimiro1/banner"
	"github.com/spf13/cobra"

	"github.com/comigor/travelbot/internal/cache"
	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/knowledge"
	"github.com/comigor/travelbot/internal/logger"
	"github.com/comigor/travelbot/internal/store"
	"github.com/comigor/travelbot/pkg/tools"
)

var version = "dev"

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "travelbot",
		Short:        "Conversational travel assistant",
		Version:      version,
		SilenceUsage: true,
		RunE:         runChat,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	root.AddCommand(newChatCmd(), newAlertsCmd(), newMCPCmd())
	return root
}

func printBanner(w io.Writer) {
	tpl := "{{ .Title \"TravelBot\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(w, true, true, bytes.NewBufferString(tpl))
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg      *config.Config
	store    store.Store
	registry *tools.Registry
	closers  []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, st.Close)

	if cfg.Cache.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			// the cache is optional, run without it
			logger.L.Warn("redis unavailable, safety alerts will not be cached", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			a.closers = append(a.closers, rdb.Close)
			st = store.WithAlertCache(st, cache.NewRedisCache(rdb), cfg.Cache.TTL)
		}
	}
	a.store = st

	kb, err := knowledge.Load()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry, err = tools.NewRegistry(tools.TravelTools(st, kb, nil)...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

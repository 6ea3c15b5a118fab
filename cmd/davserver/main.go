package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/dav/common"
	"github.com/sonroyaalmerol/davsync/internal/httpserver"
	"github.com/sonroyaalmerol/davsync/internal/logging"
	"github.com/sonroyaalmerol/davsync/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
	overrides  map[string]*string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{overrides: map[string]*string{}}
	root := &cobra.Command{
		Use:          "davserver",
		Short:        "CalDAV/CardDAV collection server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "configuration file (overrides "+config.EnvConfigFile+")")
	for flag, key := range map[string]string{
		"addr":         "http.addr",
		"base-path":    "http.base_path",
		"storage-type": "storage.type",
		"folder":       "storage.filesystem_folder",
		"sqlite-path":  "storage.sqlite_path",
		"rights":       "rights.type",
		"log-level":    "log.level",
	} {
		v := new(string)
		root.PersistentFlags().StringVar(v, flag, "", "sets "+key)
		opts.overrides[key] = v
	}

	root.AddCommand(newServeCmd(opts), newMkcolCmd(opts))
	return root
}

// load applies the config file flag and non-empty overrides on top of the
// environment and file settings.
func (o *rootOptions) load() (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, o.configFile); err != nil {
			return nil, err
		}
	}
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for key, v := range o.overrides {
		if *v == "" {
			continue
		}
		if err := config.Set(key, *v); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg, err := config.Current()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve collections over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stdout)

			srv, cleanup, err := httpserver.NewServer(cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("server init failed")
				return err
			}
			defer cleanup()

			errc := make(chan error, 1)
			go func() {
				errc <- srv.Start()
			}()

			// graceful shutdown
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errc:
				logger.Error().Err(err).Msg("server stopped with error")
				return err
			case <-ch:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("shutdown error")
			}
			logger.Info().Msg("bye")
			return nil
		},
	}
}

func newMkcolCmd(opts *rootOptions) *cobra.Command {
	var (
		path    string
		kind    string
		display string
	)
	cmd := &cobra.Command{
		Use:   "mkcol",
		Short: "Create a collection in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch kind {
			case "", storage.KindCalendar, storage.KindAddressbook:
			default:
				return fmt.Errorf("unknown kind %q (calendar or addressbook)", kind)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr).With().Str("component", "mkcol").Logger()

			store, release, err := httpserver.OpenStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("storage init: %w", err)
			}
			defer release()

			c := &storage.Collection{Path: common.CollectionPath(path), Kind: kind, DisplayName: display}
			if err := store.CreateCollection(cmd.Context(), c); err != nil {
				return fmt.Errorf("create %s: %w", c.Path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s collection %s (ctag %s)\n", kindName(c.Kind), c.Path, c.CTag)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "collection path, e.g. /bob/calendar/ (required)")
	cmd.Flags().StringVar(&kind, "kind", "", "calendar or addressbook")
	cmd.Flags().StringVar(&display, "display", "", "display name")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func kindName(kind string) string {
	if kind == "" {
		return "plain"
	}
	return kind
}

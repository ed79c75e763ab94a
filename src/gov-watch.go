package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stake-plus/solana-gov-watch/src/bot"
	"github.com/stake-plus/solana-gov-watch/src/config"
	"github.com/stake-plus/solana-gov-watch/src/ledger"
	"github.com/stake-plus/solana-gov-watch/src/store"
	"github.com/stake-plus/solana-gov-watch/src/watcher"
	"github.com/stake-plus/solana-gov-watch/src/webserver"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "gov-watch",
		Short: "watches realms governance proposals and posts discord notifications",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration management commands",
	}
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "generate a new and empty configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return config.Default().Save(configPath, false)
			},
		},
		&cobra.Command{
			Use:   "fix",
			Short: "fix bad or missing configuration values",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				if err := cfg.Fix(); err != nil {
					return err
				}
				return cfg.Save(configPath, false)
			},
		},
		&cobra.Command{
			Use:   "export-as-json",
			Short: "export the yaml config file into a json file",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				return cfg.Save(jsonName(configPath), true)
			},
		},
	)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "populate the local mirror with existing realm state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()
			return watcher.Seed(cmd.Context(), engineConfig(cfg), st, ledger.New(cfg.RPCURL), time.Now())
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}

	root.AddCommand(configCmd, seedCmd, runCmd)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	initLog(cfg)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func runBot() error {
	cfg, st, err := setup()
	if err != nil {
		return err
	}
	defer st.Close()

	client := ledger.New(cfg.RPCURL)

	b, err := bot.New(cfg, st, client)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	if err := b.Start(); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}
	log.Println("gov-watch is running, press ctrl-c to exit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Webserver.Enabled {
		srv := webserver.New(cfg.Webserver.ListenAddr, st)
		go srv.Run(ctx)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sc
	log.Printf("caught signal %v, shutting down", sig)

	cancel()
	b.Stop()
	log.Println("shutdown finalized, goodbye")
	return nil
}

func engineConfig(cfg *config.Config) watcher.Config {
	return watcher.Config{
		RealmKey:         cfg.RealmInfo.Realm(),
		GovernanceKey:    cfg.RealmInfo.Governance(),
		CouncilMint:      cfg.RealmInfo.CouncilMint(),
		CommunityMint:    cfg.RealmInfo.CommunityMint(),
		StatusChannel:    cfg.Discord.StatusChannel,
		UIBaseURL:        cfg.Discord.UIBaseURL,
		ReminderInterval: time.Duration(cfg.Discord.NotificationFrequency) * time.Hour,
		DebugLog:         cfg.DebugLog,
	}
}

// initLog mirrors the log output to the configured file when set.
func initLog(cfg *config.Config) {
	if cfg.LogFile == "" {
		return
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", cfg.LogFile, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

func jsonName(path string) string {
	if idx := strings.LastIndex(path, "."); idx > 0 {
		return path[:idx] + ".json"
	}
	return path + ".json"
}

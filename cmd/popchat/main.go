package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwern/popchat/pkg/backend"
	"github.com/dwern/popchat/pkg/channels"
	"github.com/dwern/popchat/pkg/chat"
	"github.com/dwern/popchat/pkg/config"
	"github.com/dwern/popchat/pkg/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "popchat",
		Short: "Embeddable chat popup for a portfolio site",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "popchat.json", "path to config file")
	root.AddCommand(serveCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the widget HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ch := channels.NewWidgetChannel(*cfg, nil)
			ctx := context.Background()
			if err := ch.Start(ctx); err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			logger.InfoCF("main", "shutting down", nil)
			return ch.Stop(ctx)
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := chat.NewStore(cfg.Assistant.SystemPrompt)
			coordinator := chat.NewCoordinator(store, backend.New(cfg.Assistant.Endpoint),
				chat.WithHistoryWindow(cfg.Assistant.HistoryWindow),
				chat.WithErrorTexts(cfg.Assistant.FallbackText, cfg.Assistant.ConnErrText),
			)

			return runREPL(cmd.Context(), cfg, store, coordinator)
		},
	}
}

func runREPL(ctx context.Context, cfg *config.Config, store *chat.Store, coordinator *chat.Coordinator) error {
	store.SeedWelcome(cfg.Assistant.Greeting)
	for _, t := range store.Visible() {
		printTurn(t)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}

		before := store.Len()
		if err := coordinator.Submit(ctx, line); err != nil {
			continue
		}
		for _, t := range store.All()[before:] {
			if t.Role == chat.RoleAssistant {
				printTurn(t)
			}
		}
	}
}

func printTurn(t chat.Turn) {
	fmt.Printf("%s\n", t.Content)
}

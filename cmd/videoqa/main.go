package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/videoqa/internal/app"
	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/logger"
)

var (
	configPath string
	jsonOutput bool
)

// appFactory builds the application for a command; tests replace it.
var appFactory = func(ctx context.Context, path string) (*app.App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log := app.NewLogger(&cfg.Log)
	logger.SetDefault(log)
	return app.New(ctx, cfg, log)
}

var rootCmd = &cobra.Command{
	Use:           "videoqa",
	Short:         "Operate the video question-answering service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(ingestCmd, listCmd, reindexCmd, askCmd, historyCmd, transcriptCmd, deleteCmd)
}

// withApp runs fn against a freshly wired application that is closed afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := appFactory(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(logger.SetComponent(ctx, "cli"), a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

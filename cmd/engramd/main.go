package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/engramdev/engram/pkg/api"
	"github.com/engramdev/engram/pkg/config"
	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/log"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	configPath string
	listenAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "engramd",
		Short:   "engramd runs the engram memory server",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8750", "address to listen on")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		RunE:  runMCP,
	}

	rootCmd.AddCommand(serveCmd, mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file when given, and applies
// environment overrides.
func loadConfig() (*config.Config, error) {
	// Missing .env is fine; explicit config errors are not.
	_ = godotenv.Load()

	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(configPath)
}

func setupLogging(cfg *config.Config) {
	logCfg := log.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = log.Level(cfg.Logging.Level)
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = log.Format(cfg.Logging.Format)
	}
	log.Setup(logCfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg)

	e, err := engram.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engram: %w", err)
	}
	defer e.Close()

	srv := api.NewServer(e, Version)
	log.Info("starting HTTP server", "addr", listenAddr)
	return http.ListenAndServe(listenAddr, srv)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// MCP servers must only write JSON-RPC to stdout; send logs to stderr.
	logCfg := log.DefaultConfig()
	if cfg.Logging.Level != "" {
		logCfg.Level = log.Level(cfg.Logging.Level)
	}
	slog.SetDefault(log.SetupWithOutput(logCfg, os.Stderr))

	e, err := engram.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engram: %w", err)
	}
	defer e.Close()

	log.Info("starting MCP stdio server")
	return api.NewMCPServer(e, Version).ServeStdio()
}

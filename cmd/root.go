package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/iksnae/rag-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	baseURL      string
	storeDir     string
	storeBackend string
	version      string = "dev"
	commit       string = "unknown"
	date         string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Chat with a RAG question-answering service from the terminal",
	Long: `A CLI client for a Retrieval-Augmented-Generation question-answering service.

Conversations, per-session document attachments and settings are kept
locally, so sessions survive restarts; documents and answers come from
the external RAG service over HTTP.

Features:
  • Interactive chat with per-session document attachments
  • Session history with previews, capped at the 10 most recent
  • Permanent corpus management (upload, preview, delete)
  • Generic editing of backend service configuration
  • Transcript export in multiple formats (JSONL, Markdown, YAML, JSON)

Quick Start:
  ragchat chat                        # Start or resume a conversation
  ragchat ask "What is in the docs?"  # One-shot question
  ragchat sessions list               # List saved sessions

Configuration comes from the environment (RAGCHAT_BASE_URL,
RAGCHAT_STORE_DIR, RAGCHAT_STORE_BACKEND, RAGCHAT_TIMEOUT); flags
override it per invocation.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "RAG service base URL (overrides RAGCHAT_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "State directory (overrides RAGCHAT_STORE_DIR)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store-backend", "", "State backend: file or sqlite (overrides RAGCHAT_STORE_BACKEND)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// app bundles the constructed client-side state for one command run:
// config, store, API client, controller and auth. There is no package
// level state beyond the cobra wiring; every run builds its own instance.
type app struct {
	cfg        *internal.Config
	store      internal.Store
	client     *internal.Client
	ctrl       *internal.Controller
	auth       *internal.AuthState
	closeStore func() error
}

// newApp loads configuration, opens the store and wires the controller.
func newApp() (*app, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if storeDir != "" {
		cfg.StoreDir = storeDir
	}
	if storeBackend != "" {
		cfg.StoreBackend = storeBackend
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	store, closeStore, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := internal.NewClient(cfg.BaseURL, cfg.Timeout)
	return &app{
		cfg:        cfg,
		store:      store,
		client:     client,
		ctrl:       internal.NewController(store, client),
		auth:       internal.NewAuthState(store, client),
		closeStore: closeStore,
	}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.closeStore(); err != nil {
		internal.LogWarn("failed to close store: %v", err)
	}
}

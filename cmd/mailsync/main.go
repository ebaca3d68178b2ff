package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/brandon/mailsync/internal/auth"
	"github.com/brandon/mailsync/internal/config"
	"github.com/brandon/mailsync/internal/email"
	"github.com/brandon/mailsync/internal/notify"
	"github.com/brandon/mailsync/internal/store"
	"github.com/brandon/mailsync/pkg/types"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	jsonOutput bool

	cfg     *config.Config
	logger  *logrus.Logger
	st      *store.Store
	manager *email.Manager
	nc      *notify.NATSNotifier
)

var rootCmd = &cobra.Command{
	Use:           "mailsync",
	Short:         "mailsync - local mail store synced from Gmail and IMAP",
	Long:          "Mailsync keeps a local SQLite copy of your mailboxes and serves it to agents over MCP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}
		return bootstrap(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mailsync version %s\n", Version)
	},
}

// bootstrap loads configuration and wires the store, strategies and sync manager
func bootstrap(ctx context.Context) error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = newLogger(cfg)

	st, err = store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	for i := range cfg.Accounts {
		seed := &cfg.Accounts[i]
		if _, err := st.AddAccount(ctx, seed.Draft()); err != nil {
			if errors.Is(err, types.ErrConflict) {
				continue
			}
			logger.WithError(err).WithField("account", seed.Name).Warn("Failed to seed account")
		}
	}

	opts := email.StrategyOptions{
		DialTimeout: cfg.IMAPDialTimeout,
		Logger:      logger,
	}
	if cfg.OAuthConfigured() {
		opts.Refresher = auth.NewRefresher(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthTokenURL, st, logger)
	}
	if cfg.GmailEndpoint != "" {
		opts.GmailOptions = append(opts.GmailOptions, option.WithEndpoint(cfg.GmailEndpoint))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.NATSURL != "" {
		nc, err = notify.NewNATSNotifier(cfg.NATSURL, cfg.NATSStream, logger)
		if err != nil {
			logger.WithError(err).Warn("NATS unavailable, sync events are logged only")
		} else {
			notifier = notify.Multi{notifier, nc}
		}
	}

	manager = email.NewManager(cfg, st, email.NewStrategies(opts), notifier, logger)
	return nil
}

// newLogger writes to stderr: stdout carries the MCP protocol
func newLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if cfg.LogFormat == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig).Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(versionCmd)
}

// run executes the command line. Resources opened by bootstrap are closed whether
// or not the command failed; cobra skips post-run hooks on error.
func run(args []string) error {
	defer closeResources()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func closeResources() {
	if nc != nil {
		nc.Close()
	}
	if st != nil {
		if err := st.Close(); err != nil && logger != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

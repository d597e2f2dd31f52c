package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/ajramos/gmail-autoreply/internal/config"
	"github.com/ajramos/gmail-autoreply/internal/db"
	"github.com/ajramos/gmail-autoreply/internal/gmail"
	"github.com/ajramos/gmail-autoreply/internal/llm"
	"github.com/ajramos/gmail-autoreply/internal/logging"
	"github.com/ajramos/gmail-autoreply/internal/rate"
	"github.com/ajramos/gmail-autoreply/internal/services"
	"github.com/ajramos/gmail-autoreply/internal/version"
	"github.com/ajramos/gmail-autoreply/pkg/auth"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath      string
	credentialsPath string
	tokenPath       string
	dryRun          bool
	maxResults      int
	logLevel        string
	verbose         bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and maps the outcome to a process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "autoreply",
		Short:         "Answer unread Gmail messages with generated replies",
		Long:          "autoreply lists unread inbox messages, drafts a reply for each with a language model, sends it and marks the original as read. Each invocation performs one pass.",
		Args:          cobra.NoArgs,
		Version:       version.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to configuration file (default: ~/.config/autoreply/config.json)")
	pf.StringVar(&opts.credentialsPath, "credentials", "", "Path to OAuth client credentials JSON (default: ~/.config/autoreply/credentials.json)")
	pf.StringVar(&opts.tokenPath, "token", "", "Path to the OAuth token file (default: ~/.config/autoreply/token.json)")

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Build replies and log them without sending or marking read")
	f.IntVar(&opts.maxResults, "max-results", 0, "Maximum number of unread messages to handle (default from config)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Also write the log to stderr")

	cmd.AddCommand(newSetupCmd(opts), newHistoryCmd(opts), newVersionCmd())
	return cmd
}

// loadConfig reads .env and the config file, then applies flag overrides
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}
	cfgPath := config.ResolveConfigPath(opts.configPath)
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	flags := cmd.Flags()
	if flags.Lookup("dry-run") != nil && flags.Changed("dry-run") {
		cfg.DryRun = opts.dryRun
	}
	if opts.maxResults != 0 {
		cfg.MaxResults = opts.maxResults
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, fmt.Errorf("invalid configuration %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

func runOnce(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()

	cfg, cfgPath, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		File:   config.ExpandPath(cfg.LogFile),
		Level:  cfg.LogLevel,
		Stderr: opts.verbose,
	})
	if err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	defer closer.Close()
	logger.Debug().Str("config", cfgPath).Msg("configuration loaded")

	store, err := newTokenStore(cfg, opts)
	if err != nil {
		logger.Error().Err(err).Msg("token store unavailable")
		return err
	}
	oauth := auth.NewOAuth2Config(config.ResolveCredentialsPath(opts.credentialsPath, cfg.Credentials), store, gmailapi.GmailModifyScope)
	oauth.Interactive = cfg.InteractiveAuth
	oauth.Out = cmd.ErrOrStderr()
	oauth.Logger = logger

	svc, err := auth.NewGmailService(ctx, oauth)
	if err != nil {
		logger.Error().Err(err).Msg("gmail session could not be established")
		return err
	}

	var limiter rate.Limiter = rate.Unlimited{}
	if cfg.Gmail.RequestsPerSecond > 0 {
		tb := rate.NewTokenBucket(cfg.Gmail.RequestsPerSecond)
		defer tb.Stop()
		limiter = tb
	}
	mailbox := gmail.NewClient(svc, gmail.Options{
		Limiter:         limiter,
		BreakerFailures: cfg.Gmail.BreakerFailures,
		BreakerTimeout:  cfg.GetBreakerTimeout(),
		Logger:          logger,
	})

	provider, err := llm.NewProviderFromConfig(ctx, llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		Region:   cfg.LLM.Region,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("completion provider setup failed")
		return err
	}

	service := services.NewReplyService(mailbox, provider, logger, services.ReplyOptions{
		MaxResults: cfg.MaxResults,
		DryRun:     cfg.DryRun,
		Completion: llm.Options{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature},
	})

	if cfg.Journal.Enabled {
		journalStore, err := db.Open(ctx, journalPath(cfg))
		if err != nil {
			// the journal is a record only; a run without it is still correct
			logger.Warn().Err(err).Msg("reply journal unavailable")
		} else {
			defer journalStore.Close()
			service.WithJournal(db.NewReplyStore(journalStore))
		}
	}

	report := service.Run(ctx)
	if report.Interrupted {
		logger.Warn().Str("run_id", report.RunID).Msg("stopped by signal")
	}
	return nil
}

func newTokenStore(cfg *config.Config, opts *rootOptions) (auth.TokenStore, error) {
	if cfg.TokenStore == config.TokenStoreKeyring {
		return auth.OpenKeyringTokenStore(filepath.Join(config.DefaultConfigDir(), "keyring"))
	}
	return auth.NewFileTokenStore(config.ResolveTokenPath(opts.tokenPath, cfg.Token)), nil
}

func journalPath(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Journal.Path) != "" {
		return config.ExpandPath(cfg.Journal.Path)
	}
	return config.DefaultJournalPath()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersionString())
		},
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajramos/gmail-autoreply/internal/config"
	"github.com/ajramos/gmail-autoreply/internal/llm"
)

func newSetupCmd(opts *rootOptions) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Check credentials and write a default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, opts, assumeYes)
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Create the default configuration without asking")
	return cmd
}

// runSetup reports where every file is expected and offers to create the config
func runSetup(cmd *cobra.Command, opts *rootOptions, assumeYes bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "📧 autoreply setup")
	fmt.Fprintln(out, "==================")
	fmt.Fprintln(out)

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfgPath := config.ResolveConfigPath(opts.configPath)
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	credPath := config.ResolveCredentialsPath(opts.credentialsPath, cfg.Credentials)
	tokenPath := config.ResolveTokenPath(opts.tokenPath, cfg.Token)

	cfgExists := fileExists(cfgPath)
	if cfgExists {
		fmt.Fprintf(out, "✅ Configuration file already exists: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "📝 Will create configuration file: %s\n", cfgPath)
	}

	if fileExists(credPath) {
		fmt.Fprintf(out, "✅ Credentials file found: %s\n", credPath)
	} else {
		fmt.Fprintf(out, "⚠️  Credentials file missing: %s\n", credPath)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "📋 To set up Gmail API credentials:")
		fmt.Fprintln(out, "1. Go to https://console.cloud.google.com/")
		fmt.Fprintln(out, "2. Create a new project or select existing one")
		fmt.Fprintln(out, "3. Enable Gmail API")
		fmt.Fprintln(out, "4. Create OAuth 2.0 credentials (Desktop application)")
		fmt.Fprintln(out, "5. Download the JSON file and save it as:")
		fmt.Fprintf(out, "   %s\n", credPath)
		fmt.Fprintln(out)
	}

	if cfg.TokenStore == config.TokenStoreKeyring {
		fmt.Fprintln(out, "🔐 Token is kept in the OS keyring")
	} else if fileExists(tokenPath) {
		fmt.Fprintf(out, "✅ Token file exists: %s\n", tokenPath)
	} else {
		fmt.Fprintf(out, "🔐 Token will be created on first run: %s\n", tokenPath)
	}

	reportProvider(cmd.Context(), out, cfg)

	if !cfgExists {
		create := assumeYes
		if !create {
			fmt.Fprint(out, "\n📄 Create default configuration file? [Y/n]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			create = answer == "" || answer == "y" || answer == "yes"
		}
		if create {
			if err := config.DefaultConfig().SaveConfig(cfgPath); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			fmt.Fprintf(out, "✅ Created configuration file: %s\n", cfgPath)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "🚀 Setup complete! Run autoreply (for example from cron) to answer unread mail.")
	return nil
}

func reportProvider(ctx context.Context, out io.Writer, cfg *config.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai", "":
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			fmt.Fprintln(out, "⚠️  OPENAI_API_KEY is not set; replies will fail until it is")
		} else {
			fmt.Fprintln(out, "✅ OpenAI API key found")
		}
	case "ollama":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client := llm.NewOllama(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.GetLLMTimeout())
		if client.IsAvailable(ctx) {
			fmt.Fprintf(out, "✅ Ollama reachable at %s\n", client.Endpoint)
		} else {
			fmt.Fprintf(out, "⚠️  Ollama not reachable at %s\n", client.Endpoint)
		}
	case "bedrock":
		fmt.Fprintf(out, "ℹ️  Bedrock model %q, credentials from the AWS default chain\n", cfg.LLM.Model)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

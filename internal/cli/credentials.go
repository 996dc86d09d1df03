package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/api"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the dashboard API key",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key and its hash",
	Long: `Generate prints a fresh random API key and the bcrypt hash to store in
API_KEY_HASH. The key itself is never persisted; copy it now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, hash, err := api.GenerateAPIKey()
		if err != nil {
			return fmt.Errorf("generating API key: %w", err)
		}
		fmt.Printf("API key:      %s\n", key)
		fmt.Printf("API_KEY_HASH: %s\n", hash)
		return nil
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage dashboard access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a short-lived bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.API.JWTSecret == "" {
			return errors.New("API_JWT_SECRET is not configured")
		}
		token, err := api.IssueToken(cfg.API.JWTSecret, tokenTTL)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	apikeyCmd.AddCommand(apikeyGenerateCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(apikeyCmd, tokenCmd)
}

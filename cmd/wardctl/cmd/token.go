package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AustinWheel/diving-duck-sub000/internal/api/auth"
)

var (
	tokenDBPath   string
	tokenTenantID string
	tokenTTL      time.Duration
)

// tokenCmd represents the token command group
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Dashboard token commands",
	Long: `Commands for issuing dashboard access tokens.

Tokens are signed with the server's JWT secret, read from the
WARDEN_JWT_SECRET environment variable or prompted interactively.
They are meant for testing dashboard endpoints with curl; production
tokens are issued by the dashboard's identity layer.

Example:
  wardctl token issue --tenant <tenant-id> --ttl 1h`,
}

// tokenIssueCmd issues a dashboard JWT
var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a dashboard token for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openDatabase(tokenDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		tenant, err := store.Tenants().GetByID(context.Background(), tokenTenantID)
		if err != nil {
			return fmt.Errorf("find tenant: %w", err)
		}
		if tenant == nil {
			return fmt.Errorf("tenant '%s' not found", tokenTenantID)
		}

		secret := os.Getenv("WARDEN_JWT_SECRET")
		if secret == "" {
			secret, err = promptSecret("JWT secret: ")
			if err != nil {
				return fmt.Errorf("read secret: %w", err)
			}
		}
		if secret == "" {
			return fmt.Errorf("a JWT secret is required")
		}

		jwtService := auth.NewJWTService([]byte(secret), tokenTTL)
		token, err := jwtService.GenerateToken(tenant.ID)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		fmt.Printf("\nToken for tenant '%s' (valid %s):\n\n  %s\n", tenant.Name, tokenTTL, token)

		return nil
	},
}

// promptSecret prompts for a secret without echoing to the terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		secretBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(secretBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	reader := bufio.NewReader(os.Stdin)
	secret, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&tokenDBPath, "db", defaultDBPath, "path to SQLite database file")
	tokenIssueCmd.Flags().StringVar(&tokenTenantID, "tenant", "", "tenant id (required)")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenIssueCmd.MarkFlagRequired("tenant")
}

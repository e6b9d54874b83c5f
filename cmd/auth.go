package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajisegiri/calagent/internal/auth"
)

func newAuthCmd() *cobra.Command {
	var (
		userID             string
		googleClientID     string
		googleClientSecret string
		redirectURL        string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a user from the terminal",
		Long: `Walk through the Google OAuth consent flow without a running server.

Prints the authorization URL for the given user. Open it in a browser,
approve access, then paste the authorization code back into the terminal.
This verifies that the OAuth client is configured correctly and that
consent can be granted for the requested calendar scope.

Note that tokens obtained here are not persisted; the serve command keeps
its own in-memory credential store and users authorize against a running
server through its /oauth2/auth endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}
			if googleClientID == "" || googleClientSecret == "" {
				return fmt.Errorf("google OAuth client credentials are required: set --google-client-id/--google-client-secret or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
			}
			if redirectURL == "" {
				redirectURL = os.Getenv("CALAGENT_REDIRECT_URL")
			}
			if redirectURL == "" {
				redirectURL = defaultRedirectURL(":8080")
			}

			return runAuth(cmd.Context(), userID, googleClientID, googleClientSecret, redirectURL)
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User identifier to authorize (required)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "OAuth redirect URL registered for the client. Can also use CALAGENT_REDIRECT_URL env var.")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func runAuth(ctx context.Context, userID, clientID, clientSecret, redirectURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store := auth.NewStore()
	flow := auth.NewFlow(newOAuthConfig(clientID, clientSecret, redirectURL), store)

	fmt.Printf("Open the following URL in a browser and approve access:\n\n%s\n\n", flow.AuthURL(userID))
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	if err := flow.Exchange(ctx, userID, code); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	cred, _ := store.Get(userID)
	fmt.Printf("Authorization successful for user %q.\n", userID)
	if !cred.Expiry.IsZero() {
		fmt.Printf("Access token valid until %s.\n", cred.Expiry.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

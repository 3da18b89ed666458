package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/oauth"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in to the reader backend",
	Long: `Sign in with your email and password.

The password is read from the terminal without echo, or from standard input
when it is not a terminal. Use --password-stdin in scripts.

With --provider, sign in through an external identity provider instead: the
sign-in page opens in your browser and the session is picked up on a local
callback port.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup [email]",
	Short: "Create an account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

// providerTimeout bounds how long browser sign-in waits for the callback.
const providerTimeout = 5 * time.Minute

var (
	// passwordStdin reads the password from stdin without prompting.
	passwordStdin bool

	// loginProvider selects browser sign-in, e.g. "github".
	loginProvider string

	// openBrowser is replaced in tests.
	openBrowser = oauth.OpenBrowser
)

func init() {
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	loginCmd.Flags().StringVar(&loginProvider, "provider", "", "Sign in through an identity provider (e.g. github)")
	signupCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	if loginProvider != "" {
		return runProviderLogin(cmd, loginProvider)
	}

	email, password, err := readLogin(cmd, args)
	if err != nil {
		return err
	}

	identity, err := authService.SignIn(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	cmd.Printf("Signed in as %s\n", displayIdentity(identity))
	return nil
}

// runProviderLogin signs in with the PKCE code flow through a loopback callback.
func runProviderLogin(cmd *cobra.Command, provider string) error {
	verifier, err := oauth.GenerateCodeVerifier()
	if err != nil {
		return err
	}

	server := oauth.NewCallbackServer(0, "")
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stopping callback server: %v", err)
		}
	}()

	link, err := authService.ProviderURL(provider, server.RedirectURI(), oauth.GenerateCodeChallenge(verifier))
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	cmd.Printf("Opening %s sign-in in your browser. If it does not open, visit:\n  %s\n", provider, link)
	if err := openBrowser(link); err != nil {
		logger.Debug("opening browser: %v", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), providerTimeout)
	defer cancel()

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	identity, err := authService.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	cmd.Printf("Signed in as %s\n", displayIdentity(identity))
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	email, password, err := readLogin(cmd, args)
	if err != nil {
		return err
	}

	identity, err := authService.SignUp(cmd.Context(), email, password)
	if errors.Is(err, domain.ErrAuthInvalid) {
		cmd.Println("Account created. Confirm your email address, then run 'marginalia login'.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}

	cmd.Printf("Account created. Signed in as %s\n", displayIdentity(identity))
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	if err := authService.SignOut(cmd.Context()); err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}
	cmd.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	identity, err := authService.Identity(cmd.Context())
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Println("Not signed in. Run 'marginalia login'.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("%s\n", displayIdentity(identity))
	return nil
}

// readLogin collects the email from args or a prompt, then the password.
func readLogin(cmd *cobra.Command, args []string) (email, password string, err error) {
	reader := bufio.NewReader(cmd.InOrStdin())

	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	} else {
		cmd.Print("Email: ")
		email = readLine(reader)
	}
	if email == "" {
		return "", "", errors.New("email is required")
	}

	if passwordStdin {
		password = readLine(reader)
	} else {
		cmd.Print("Password: ")
		password = readPassword(cmd, reader)
		cmd.Println()
	}
	if password == "" {
		return "", "", errors.New("password is required")
	}
	return email, password, nil
}

func readLine(reader *bufio.Reader) string {
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(input)
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func displayIdentity(identity domain.Identity) string {
	if identity.Email != "" {
		return fmt.Sprintf("%s (%s)", identity.Email, identity.UserID)
	}
	return identity.UserID
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/term"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const defaultAuthTimeout = 5 * time.Minute

// AuthError is returned when no usable credential can be produced. It is fatal to a run.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authorization failed: " + e.Reason
	}
	return fmt.Sprintf("authorization failed: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// OAuth2Config holds OAuth2 configuration
type OAuth2Config struct {
	CredentialsPath string
	Scopes          []string
	Store           TokenStore
	// Interactive allows the browser authorization flow when no usable token exists
	Interactive bool
	AuthTimeout time.Duration
	// Out receives the authorization instructions
	Out    io.Writer
	Logger zerolog.Logger

	isTerminal func() bool
}

// NewOAuth2Config creates a new OAuth2 configuration
func NewOAuth2Config(credentialsPath string, store TokenStore, scopes ...string) *OAuth2Config {
	return &OAuth2Config{
		CredentialsPath: credentialsPath,
		Scopes:          scopes,
		Store:           store,
		Interactive:     true,
		AuthTimeout:     defaultAuthTimeout,
		Out:             os.Stderr,
		Logger:          zerolog.Nop(),
		isTerminal:      func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// LoadCredentials loads the OAuth2 client secret from file
func (c *OAuth2Config) LoadCredentials() (*oauth2.Config, error) {
	data, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("could not read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, c.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("could not parse credentials file: %w", err)
	}

	return config, nil
}

// Obtain returns a usable token. A valid persisted token is returned as is;
// an expired one is refreshed and re-persisted; anything else goes through
// the interactive flow and the issued token replaces the stored one.
func (c *OAuth2Config) Obtain(ctx context.Context) (*oauth2.Token, error) {
	config, err := c.LoadCredentials()
	if err != nil {
		return nil, &AuthError{Reason: "load client secret", Err: err}
	}
	return c.obtain(ctx, config)
}

func (c *OAuth2Config) obtain(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	token, err := c.Store.Load()
	switch {
	case err == nil && token.Valid():
		return token, nil
	case err == nil && token.RefreshToken != "":
		refreshed, rerr := c.refreshToken(ctx, config, token)
		if rerr == nil {
			if err := c.Store.Save(refreshed); err != nil {
				return nil, &AuthError{Reason: "persist refreshed token", Err: err}
			}
			c.Logger.Info().Str("store", c.Store.Location()).Msg("access token refreshed")
			return refreshed, nil
		}
		if !isRevoked(rerr) {
			return nil, &AuthError{Reason: "token refresh failed", Err: rerr}
		}
		c.Logger.Warn().Err(rerr).Msg("refresh token expired or revoked, re-authorization required")
	case err != nil && !errors.Is(err, ErrTokenNotFound):
		c.Logger.Warn().Err(err).Str("store", c.Store.Location()).Msg("persisted token unreadable, re-authorization required")
	}

	if !c.Interactive {
		return nil, &AuthError{Reason: "interactive authorization required but disabled"}
	}
	if c.isTerminal != nil && !c.isTerminal() {
		return nil, &AuthError{Reason: "interactive authorization required but stdin is not a terminal"}
	}

	token, err = c.authenticate(ctx, config)
	if err != nil {
		return nil, &AuthError{Reason: "interactive authorization", Err: err}
	}
	if err := c.Store.Save(token); err != nil {
		return nil, &AuthError{Reason: "persist token", Err: err}
	}
	c.Logger.Info().Str("store", c.Store.Location()).Msg("authorization completed, token saved")
	return token, nil
}

// authenticate performs OAuth2 authentication with a local loopback server
func (c *OAuth2Config) authenticate(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("could not start local listener: %w", err)
	}

	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("<html><body><h2>Authorization error</h2><p>State mismatch.</p></body></html>"))
				sendErr(errorChan, fmt.Errorf("authorization state mismatch"))
				return
			}
			code := q.Get("code")
			if code == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("<html><body><h2>Authorization error</h2><p>Authorization code not received.</p></body></html>"))
				sendErr(errorChan, fmt.Errorf("authorization code not received: %s", q.Get("error")))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html><body><h2>Authorization successful</h2><p>You can close this window and return to the terminal.</p></body></html>"))
			select {
			case codeChan <- code:
			default:
			}
		}),
	}

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			sendErr(errorChan, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	localConfig := *config
	localConfig.RedirectURL = "http://" + ln.Addr().String() + "/"

	authURL := localConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	out := c.Out
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "\n🔐 Authorization required\n")
	fmt.Fprintf(out, "1. Open this link: %s\n", authURL)
	fmt.Fprintf(out, "2. Grant access to the application\n")
	fmt.Fprintf(out, "3. You will be redirected automatically\n")
	fmt.Fprintf(out, "\nWaiting for authorization...\n")

	timeout := c.AuthTimeout
	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errorChan:
		return nil, fmt.Errorf("local server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("authorization timeout exceeded")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := localConfig.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("could not exchange authorization code for token: %w", err)
	}

	fmt.Fprintf(out, "✅ Authorization successful!\n")
	return token, nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// refreshToken refreshes an expired token
func (c *OAuth2Config) refreshToken(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	newToken, err := config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("could not refresh token: %w", err)
	}
	return newToken, nil
}

// isRevoked reports a refresh rejected because the grant itself is gone
func isRevoked(err error) bool {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "Token has been expired or revoked")
}

// NewGmailService creates a new Gmail service using OAuth2
func NewGmailService(ctx context.Context, c *OAuth2Config) (*gmail.Service, error) {
	config, err := c.LoadCredentials()
	if err != nil {
		return nil, &AuthError{Reason: "load client secret", Err: err}
	}

	token, err := c.obtain(ctx, config)
	if err != nil {
		return nil, err
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("could not create Gmail service: %w", err)
	}
	return service, nil
}

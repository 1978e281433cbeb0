package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/skysync/internal/shared"
)

// DefaultRedirectURL is used when a provider config carries no redirect.
const DefaultRedirectURL = "http://127.0.0.1:8483/callback"

// Authorize runs the loopback authorization code flow: it binds a temporary
// HTTP server on the config's redirect address, opens the consent page in the
// system browser, and waits for the provider to call back. Cancel ctx to
// abort a flow the user abandoned.
func Authorize(ctx context.Context, config *oauth2.Config, logger *log.Logger) (*oauth2.Token, error) {
	if config.RedirectURL == "" {
		config.RedirectURL = DefaultRedirectURL
	}
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}

	state := shared.GenerateID()
	handler := NewOAuthHandler(config, state)

	mux := http.NewServeMux()
	mux.Handle(redirect.Path, handler)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback address %s: %w", redirect.Host, err)
	}

	srv := &http.Server{Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	logger.Info("waiting for authorization", "url", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		logger.Warn("could not open browser, visit the URL manually", "error", err)
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

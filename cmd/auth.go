package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/radiotx/internal/server"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// Auth runs the OAuth2 flow against a temporary local callback server and stores the token for CLI use.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml or the environment", shared.ErrInvalidArgument)
	}

	spotify, err := services.NewSpotifyService(creds.Map(), r.spotifyOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	session, err := r.doOAuth(ctx, spotify)
	if err != nil {
		return err
	}

	if err := sessions.Save(cliSessionID, session); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("You can now use: radiotx sync --file <key>\n")
	return nil
}

// doOAuth serves the callback on the configured host and port until the flow completes.
func (r *Runner) doOAuth(ctx context.Context, oauth services.OAuthService) (services.Session, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauth.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauth, state, services.Session{})
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := server.NewHTTPServer(serverAddr, router)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	return result.Session, nil
}

// AuthStatus reports whether a usable token is stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	data, err := sessions.Load(cliSessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session := services.Session(data)

	switch {
	case services.IsAuthenticated(session):
		r.writePlain("Spotify: ✓ Authenticated\n")
		if raw := session[services.KeyExpiresAt]; raw != "" {
			if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
				r.writePlain("Token expires: %s\n", time.Unix(secs, 0).Format(time.RFC1123))
			}
		}
	case session[services.KeyRefreshToken] != "":
		r.writePlain("Spotify: token expired, it will be refreshed on next use\n")
	default:
		r.writePlain("Spotify: ✗ Not authenticated (run 'radiotx auth')\n")
	}
	return nil
}

// AuthLogout drops the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sessions, release, err := r.sessionStore()
	if err != nil {
		return err
	}
	defer release()

	data, err := sessions.Load(cliSessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session := services.Session(data)
	if !services.ClearToken(session) {
		return r.writePlain("No Spotify token stored\n")
	}
	if err := sessions.Save(cliSessionID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return r.writePlain("✓ Logged out of Spotify\n")
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/vors-gg/vors/internal/shared"
)

// AuthStatus checks the running server's authentication state by calling
// its /auth/status endpoint.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	resp, err := r.server.AuthStatus(ctx)
	if err != nil {
		return fmt.Errorf("%w: service unavailable: %v", shared.ErrServiceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, true)
	}

	statusData, ok := resp.JSONData.(map[string]any)
	if !ok {
		return r.writePlain("✓ Server is reachable\n")
	}

	hasToken, _ := statusData["has_token"].(bool)
	isValid, _ := statusData["is_valid"].(bool)

	r.writePlain("✓ Server is reachable\n")
	switch {
	case hasToken && isValid:
		r.writePlain("Authentication: ✓ Authenticated\n")
		if mins, ok := statusData["expires_in_minutes"].(float64); ok {
			r.writePlain("Token expires in: %d minutes\n", int(mins))
		}
	case hasToken:
		r.writePlain("Authentication: ⚠ Token expired, will refresh on next request\n")
	default:
		r.writePlain("Authentication: ✗ Not authenticated\n")
		r.writePlain("Run 'vors auth login' to connect a Spotify account\n")
	}
	return nil
}

// AuthLogin opens the server's login URL in the default browser, starting
// the OAuth flow. The server must be running.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	loginURL := fmt.Sprintf("%s/auth/login", serverAddr(config))

	if cmd.Bool("print") {
		return r.writePlain("%s\n", loginURL)
	}

	r.logger.Info("opening browser", "url", loginURL)
	if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		return r.writePlain("Open this URL to log in:\n%s\n", loginURL)
	}

	r.writePlain("✓ Browser opened\n")
	return r.writePlain("Complete the Spotify login in your browser, then run 'vors auth status'\n")
}

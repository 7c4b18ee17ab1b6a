package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// stubbed in tests
var getRuntime = func() string { return runtime.GOOS }

// browserCommands maps GOOS to the launcher that hands a URL to the default
// browser on that platform.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

// OpenBrowser opens the default system browser at the given URL. Used by
// the auth login command to kick off the OAuth flow.
func OpenBrowser(url string) error {
	launcher, ok := browserCommands[getRuntime()]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", getRuntime())
	}

	args := append(launcher[1:], url)
	if err := exec.Command(launcher[0], args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

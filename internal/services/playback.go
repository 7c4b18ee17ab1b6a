package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
)

// DefaultTransferDelay is how long EnsureActiveDevice waits after a
// transfer for the remote service's state to propagate. Empirical: a
// transfer acknowledged with 204 is not immediately reflected by the
// player endpoints.
const DefaultTransferDelay = 500 * time.Millisecond

// PlaybackController picks a target playback device so game code never
// reasons about device discovery.
type PlaybackController struct {
	client        *Client
	logger        *log.Logger
	transferDelay time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewPlaybackController creates a controller over the given client. A
// non-positive transferDelay falls back to [DefaultTransferDelay].
func NewPlaybackController(client *Client, transferDelay time.Duration, logger *log.Logger) *PlaybackController {
	if transferDelay <= 0 {
		transferDelay = DefaultTransferDelay
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &PlaybackController{
		client:        client,
		logger:        logger,
		transferDelay: transferDelay,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// BestDevice returns the preferred playback device, or nil when none are
// available. Precedence, first match wins: a device already active, then a
// computer-type or computer-named device, then the first in the list as the
// remote service ordered it.
func (p *PlaybackController) BestDevice(ctx context.Context, jar tokens.Jar) (*Device, error) {
	devices, err := p.client.Devices(ctx, jar)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, nil
	}

	for i := range devices {
		if devices[i].IsActive {
			return &devices[i], nil
		}
	}

	for i := range devices {
		if isComputer(devices[i]) {
			return &devices[i], nil
		}
	}

	return &devices[0], nil
}

// EnsureActiveDevice resolves the best device and, if it is not already
// active, transfers playback to it without forcing play, then waits for the
// transfer to propagate. Returns the device ID, or [shared.ErrNoDevice]
// when no device is available.
func (p *PlaybackController) EnsureActiveDevice(ctx context.Context, jar tokens.Jar) (string, error) {
	device, err := p.BestDevice(ctx, jar)
	if err != nil {
		return "", err
	}
	if device == nil {
		return "", shared.ErrNoDevice
	}

	if device.IsActive {
		return device.ID, nil
	}

	p.logger.Info("transferring playback", "device", device.Name, "type", device.Type)
	if err := p.client.TransferPlayback(ctx, jar, device.ID, false); err != nil {
		return "", err
	}

	if err := p.sleep(ctx, p.transferDelay); err != nil {
		return "", err
	}
	return device.ID, nil
}

// isComputer reports whether a device looks like a general-purpose
// computer, by type or by name.
func isComputer(d Device) bool {
	return strings.EqualFold(d.Type, "computer") ||
		strings.Contains(strings.ToLower(d.Name), "computer")
}

package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
	"golang.org/x/time/rate"
)

// DefaultQueueDelay is the pacing between batch queue calls, respecting the
// remote service's rate limits.
const DefaultQueueDelay = 500 * time.Millisecond

// QueueResult is the per-item accounting for a batch queue operation.
type QueueResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	FailedURIs []string `json:"failed_uris,omitempty"`
}

// QueueManager paces queue additions so batches never hammer the remote
// service. Batch items are issued strictly sequentially.
type QueueManager struct {
	client  *Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewQueueManager creates a manager over the given client. A non-positive
// delay falls back to [DefaultQueueDelay].
func NewQueueManager(client *Client, delay time.Duration, logger *log.Logger) *QueueManager {
	if delay <= 0 {
		delay = DefaultQueueDelay
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &QueueManager{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		logger:  logger,
	}
}

// QueueTrack adds one track to the playback queue.
func (q *QueueManager) QueueTrack(ctx context.Context, jar tokens.Jar, uri string) error {
	return q.client.AddToQueue(ctx, jar, uri)
}

// QueueTracks adds the given URIs sequentially with the configured pacing.
// One failure does not abort the batch: each item is accounted
// individually. A cancelled context stops the batch and counts the
// remaining items as failed.
func (q *QueueManager) QueueTracks(ctx context.Context, jar tokens.Jar, uris []string) QueueResult {
	var result QueueResult

	for i, uri := range uris {
		if err := q.limiter.Wait(ctx); err != nil {
			result.Failed += len(uris) - i
			result.FailedURIs = append(result.FailedURIs, uris[i:]...)
			return result
		}

		if err := q.client.AddToQueue(ctx, jar, uri); err != nil {
			q.logger.Warn("failed to queue track", "uri", uri, "error", err)
			result.Failed++
			result.FailedURIs = append(result.FailedURIs, uri)
			continue
		}
		result.Successful++
	}

	return result
}

package pipeline

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/leonardotrapani/sttbridge/internal/metrics"
	"github.com/leonardotrapani/sttbridge/internal/queue"
)

var ErrOffline = errors.New("online mode is not active")

// Controller owns the online/offline flag. It gates admission into the
// queue and wakes or parks the worker through two broadcast channels: the
// one for the current mode is closed, the other is open.
//
// Lock order is Controller.mu, then the queue's or mailbox's own lock.
type Controller struct {
	mu        sync.Mutex
	online    bool
	onlineCh  chan struct{}
	offlineCh chan struct{}

	queue   *queue.ChunkQueue
	mailbox *Mailbox
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewController returns a controller in offline mode.
func NewController(q *queue.ChunkQueue, m *metrics.Metrics, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	offlineCh := make(chan struct{})
	close(offlineCh)

	c := &Controller{
		onlineCh:  make(chan struct{}),
		offlineCh: offlineCh,
		queue:     q,
		mailbox:   NewMailbox(),
		metrics:   m,
		logger:    logger.With(slog.String("component", "mode")),
	}
	m.SetOnline(false)
	return c
}

// SetOnline applies the mode and returns it. Going offline empties the queue
// and resets the mailbox before returning, whatever the previous mode was.
func (c *Controller) SetOnline(online bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.online != online
	c.online = online

	if online {
		if changed {
			close(c.onlineCh)
			c.offlineCh = make(chan struct{})
		}
	} else {
		if changed {
			close(c.offlineCh)
			c.onlineCh = make(chan struct{})
		}
		dropped := c.queue.Clear()
		c.mailbox.Reset()
		c.metrics.RecordCleared(dropped)
		c.metrics.SetQueueLength(0)
		if dropped > 0 {
			c.logger.Info("discarded pending chunks", slog.Int("count", dropped))
		}
	}

	if changed {
		c.metrics.SetOnline(online)
		c.logger.Info("mode changed", slog.Bool("online", online))
	}
	return online
}

func (c *Controller) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Online returns a channel that is closed while the pipeline is online.
func (c *Controller) Online() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onlineCh
}

// Offline returns a channel that is closed while the pipeline is offline.
func (c *Controller) Offline() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offlineCh
}

// Submit admits chunk into the queue. The mode check and the enqueue happen
// under the same lock as SetOnline, so an offline transition never leaves a
// chunk behind.
func (c *Controller) Submit(chunk queue.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.online {
		c.metrics.RecordRejected(metrics.RejectOffline)
		return ErrOffline
	}

	if err := c.queue.Enqueue(chunk); err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			c.metrics.RecordRejected(metrics.RejectQueueFull)
		default:
			c.metrics.RecordRejected(metrics.RejectInvalid)
		}
		return err
	}

	c.metrics.RecordAccepted()
	c.metrics.SetQueueLength(c.queue.Len())
	return nil
}

// Publish stores text as the latest result. It reports false, and stores
// nothing, when the pipeline is offline.
func (c *Controller) Publish(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.online {
		return false
	}
	c.mailbox.Put(Result{Status: StatusSuccess, Text: text})
	return true
}

// Poll returns the latest result and resets the slot to idle.
func (c *Controller) Poll() Result {
	r := c.mailbox.Take()
	c.metrics.RecordPoll(string(r.Status))
	return r
}

// Snapshot is a point-in-time view for status endpoints.
type Snapshot struct {
	Online        bool `json:"online"`
	QueueLength   int  `json:"queue_length"`
	QueueCapacity int  `json:"queue_capacity"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Online:        c.online,
		QueueLength:   c.queue.Len(),
		QueueCapacity: c.queue.Cap(),
	}
}

// Package notify maps worker events to normalized build-status payloads and
// fans them out to the downstream notifier endpoint.
//
// All outbound posts are fire-and-forget: they run on a bounded background
// worker pool so a slow downstream can never tie up the ingress, and their
// failures are logged, never surfaced to the caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/prdflow/internal/jobs"
	"git.home.luguber.info/inful/prdflow/internal/logfields"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/retry"
)

const buildEventPath = "/api/webhook/build-event"

// statusWriter is the slice of the store the notifier needs.
type statusWriter interface {
	SetBuildStatus(ctx context.Context, id string, status jobs.BuildStatus, message string) error
}

// BuildEvent is the normalized payload posted downstream.
type BuildEvent struct {
	JobID    string           `json:"job_id"`
	Status   jobs.BuildStatus `json:"status"`
	Message  string           `json:"message"`
	Metadata json.RawMessage  `json:"metadata,omitempty"`
}

// Options configures a Notifier.
type Options struct {
	NotifierURL string // empty disables the downstream HTTP post
	Bearer      string
	Bus         *EventBus // optional NATS fanout
	Workers     int
	QueueSize   int

	// Retry governs re-posting after transport errors and 5xx answers.
	// Zero value means retry.DefaultPolicy.
	Retry retry.Policy
}

// Notifier resolves build statuses from events and fans out notifications.
type Notifier struct {
	store  statusWriter
	opts   Options
	client *http.Client

	tasks chan func()
	done  chan struct{}
}

// New creates a Notifier. Start must be called before any fanout happens.
func New(store statusWriter, opts Options) *Notifier {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Retry.Validate() != nil {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Notifier{
		store:  store,
		opts:   opts,
		client: &http.Client{Timeout: 10 * time.Second},
		tasks:  make(chan func(), opts.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the background fanout workers.
func (n *Notifier) Start() {
	for i := 0; i < n.opts.Workers; i++ {
		go n.worker()
	}
}

// Stop stops accepting fanout tasks. In-flight posts may be abandoned.
func (n *Notifier) Stop() {
	close(n.done)
}

func (n *Notifier) worker() {
	for {
		select {
		case <-n.done:
			return
		case task := <-n.tasks:
			task()
		}
	}
}

// enqueue hands a post to the pool; a full queue drops the task with a log
// line rather than blocking the caller.
func (n *Notifier) enqueue(task func()) {
	select {
	case n.tasks <- task:
	default:
		metrics.NotifyFailures.Inc()
		slog.Warn("Notification queue full, dropping fanout task")
	}
}

// Forward resolves the build status for a worker event, persists it, and
// fans the normalized payload out. Unknown events return immediately.
func (n *Notifier) Forward(ctx context.Context, jobID, event string, detail json.RawMessage) {
	mapped, ok := buildStatusByEvent[event]
	if !ok {
		return
	}

	message := mapped.Message
	if len(detail) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(detail, &fields); err == nil {
			if m, ok := fields["message"].(string); ok && m != "" {
				message = m
			}
		}
	}

	if err := n.store.SetBuildStatus(ctx, jobID, mapped.Status, message); err != nil {
		slog.Error("Failed to persist build status",
			logfields.JobID(jobID),
			logfields.Event(event),
			logfields.Error(err))
	}

	n.SendBuildEvent(BuildEvent{JobID: jobID, Status: mapped.Status, Message: message})
}

// SendBuildEvent posts the payload to the downstream notifier and, when
// configured, publishes it on the event bus. Fire-and-forget.
func (n *Notifier) SendBuildEvent(event BuildEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode build event", logfields.JobID(event.JobID), logfields.Error(err))
		return
	}

	if n.opts.Bus != nil {
		n.enqueue(func() {
			if err := n.opts.Bus.Publish(payload); err != nil {
				metrics.NotifyFailures.Inc()
				slog.Warn("Event bus publish failed",
					logfields.JobID(event.JobID),
					logfields.Error(err))
			}
		})
	}

	if n.opts.NotifierURL == "" {
		return
	}
	n.enqueue(func() {
		n.post(n.opts.NotifierURL+buildEventPath, n.opts.Bearer, payload, event.JobID)
	})
}

// PostCallback delivers a raw event to a per-job callback URL. Fire-and-forget.
func (n *Notifier) PostCallback(callbackURL, jobID, event string, detail json.RawMessage) {
	body := map[string]any{"job_id": jobID, "event": event}
	if len(detail) > 0 {
		body["detail"] = detail
	}
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("Failed to encode callback payload", logfields.JobID(jobID), logfields.Error(err))
		return
	}
	n.enqueue(func() {
		n.post(callbackURL, "", payload, jobID)
	})
}

// post delivers one payload, retrying transport errors and 5xx answers per
// the backoff policy. 4xx answers are final: retrying a rejected payload
// cannot change the outcome.
func (n *Notifier) post(url, bearer string, payload []byte, jobID string) {
	for attempt := 0; ; attempt++ {
		status, err := n.postOnce(url, bearer, payload)
		if err == nil && status < 500 {
			if status >= 300 {
				metrics.NotifyFailures.Inc()
				slog.Warn("Notification rejected downstream",
					logfields.JobID(jobID),
					logfields.URL(url),
					logfields.Status(status))
			}
			return
		}

		if attempt >= n.opts.Retry.MaxRetries {
			metrics.NotifyFailures.Inc()
			if err != nil {
				slog.Warn("Notification post failed",
					logfields.JobID(jobID),
					logfields.URL(url),
					logfields.Error(err))
			} else {
				slog.Warn("Notification rejected downstream",
					logfields.JobID(jobID),
					logfields.URL(url),
					logfields.Status(status))
			}
			return
		}
		time.Sleep(n.opts.Retry.Delay(attempt + 1))
	}
}

func (n *Notifier) postOnce(url, bearer string, payload []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

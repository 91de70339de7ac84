package notification

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Lernhub/internal/pkg/jobqueue"
	"github.com/ManuelReschke/Lernhub/internal/pkg/metrics"
)

// DefaultEnqueueTimeout bounds a single hand-off to the job queue.
const DefaultEnqueueTimeout = 5 * time.Second

// Dispatcher sends best-effort notifications.
type Dispatcher interface {
	Send(ctx context.Context, templateID, recipient string, data map[string]interface{})
}

// Enqueuer is the part of the job queue the dispatcher uses.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// QueueDispatcher turns notifications into send_email jobs. Send returns
// immediately; the enqueue runs on its own goroutine with its own deadline
// and failures only show up in the log and metrics.
type QueueDispatcher struct {
	queue   Enqueuer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewQueueDispatcher(queue Enqueuer, timeout time.Duration) *QueueDispatcher {
	if timeout <= 0 {
		timeout = DefaultEnqueueTimeout
	}
	return &QueueDispatcher{queue: queue, timeout: timeout}
}

func (d *QueueDispatcher) Send(ctx context.Context, templateID, recipient string, data map[string]interface{}) {
	payload := jobqueue.SendEmailJobPayload{
		TemplateID: templateID,
		Recipient:  recipient,
		Data:       data,
	}.ToMap()

	// The request context ends with the webhook response.
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("[Notify] Panic while enqueueing %s for %s: %v", templateID, recipient, r)
				metrics.NotificationFailures.WithLabelValues(templateID).Inc()
			}
		}()

		enqueueCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		job, err := d.queue.EnqueueJob(enqueueCtx, jobqueue.JobTypeSendEmail, payload)
		if err != nil {
			log.Errorf("[Notify] Failed to enqueue %s for %s: %v", templateID, recipient, err)
			metrics.NotificationFailures.WithLabelValues(templateID).Inc()
			return
		}
		log.Debugf("[Notify] Queued %s for %s as job %s", templateID, recipient, job.ID)
	}()
}

// Wait blocks until in-flight enqueues have finished. Used on shutdown.
func (d *QueueDispatcher) Wait() {
	d.wg.Wait()
}

// Nop drops every notification. Used when NOTIFICATIONS_ENABLED is off.
type Nop struct{}

func (Nop) Send(_ context.Context, templateID, recipient string, _ map[string]interface{}) {
	log.Debugf("[Notify] Notifications disabled, dropping %s for %s", templateID, recipient)
}

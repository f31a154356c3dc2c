package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-room-api/internal/models"
	"github.com/noah-isme/exam-room-api/pkg/events"
	"github.com/noah-isme/exam-room-api/pkg/jobs"
)

// Allocation event types.
const (
	EventAllocationCommitted = "allocation.committed"
	EventAllocationCancelled = "allocation.cancelled"
)

// AllocationCommittedPayload describes a committed batch.
type AllocationCommittedPayload struct {
	BatchID      string                  `json:"batch_id"`
	Slot         models.Slot             `json:"slot"`
	Strategy     string                  `json:"strategy"`
	Succeeded    int                     `json:"succeeded"`
	Failed       int                     `json:"failed"`
	Allocations  int                     `json:"allocations"`
	Participants int                     `json:"participants"`
	Waste        int                     `json:"waste"`
	Courses      []CommittedCourseRecord `json:"courses"`
}

// CommittedCourseRecord lists the rooms a course received.
type CommittedCourseRecord struct {
	CourseID string   `json:"course_id"`
	Success  bool     `json:"success"`
	RoomIDs  []string `json:"room_ids,omitempty"`
}

// AllocationCancelledPayload describes a cancellation.
type AllocationCancelledPayload struct {
	CourseID  string      `json:"course_id"`
	Slot      models.Slot `json:"slot"`
	Cancelled int64       `json:"cancelled"`
}

// AllocationEventDispatcher publishes allocation events asynchronously through a job queue.
type AllocationEventDispatcher struct {
	queue     *jobs.Queue
	publisher events.Publisher
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAllocationEventDispatcher wires a publisher behind a worker queue.
func NewAllocationEventDispatcher(publisher events.Publisher, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *AllocationEventDispatcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	d := &AllocationEventDispatcher{publisher: publisher, metrics: metrics, logger: logger}
	d.queue = jobs.NewQueue("allocation-events", d.handle, cfg)
	return d
}

// Start launches the publishing workers.
func (d *AllocationEventDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop publishes what is still queued, bounded by the queue drain timeout, then closes the publisher.
func (d *AllocationEventDispatcher) Stop() {
	d.queue.Stop()
	stats := d.queue.Stats()
	d.logger.Info("allocation event dispatcher stopped",
		zap.Int64("processed", stats.Processed),
		zap.Int64("retried", stats.Retried),
		zap.Int64("dropped", stats.Dropped),
	)
	if err := d.publisher.Close(); err != nil {
		d.logger.Warn("close event publisher", zap.Error(err))
	}
}

// Dispatch queues an event without waiting. A full or stopped queue drops the event;
// failures are logged and never reach the caller.
func (d *AllocationEventDispatcher) Dispatch(_ context.Context, eventType string, payload interface{}) {
	if d == nil {
		return
	}
	evt := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := d.queue.TryEnqueue(jobs.Job{ID: evt.ID, Type: eventType, Payload: evt}); err != nil {
		d.metrics.RecordEvent(eventType, "dropped")
		d.logger.Warn("allocation event not queued", zap.String("type", eventType), zap.String("event_id", evt.ID), zap.Error(err))
	}
}

func (d *AllocationEventDispatcher) handle(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(events.Event)
	if !ok {
		d.metrics.RecordEvent(job.Type, "invalid")
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if err := d.publisher.Publish(ctx, evt); err != nil {
		d.metrics.RecordEvent(evt.Type, "failed")
		return err
	}
	d.metrics.RecordEvent(evt.Type, "published")
	return nil
}

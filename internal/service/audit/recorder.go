// Package audit emits immutable lifecycle events to the audit collaborator
// through the transactional outbox. Emission is fire-and-forget: a failed
// write is logged, never propagated, so it can never block a transition.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/repository"
	"github.com/quantalab/lims-api/pkg/logger"
)

type Recorder struct {
	outbox repository.OutboxRepository
	logger *logger.Logger
}

func NewRecorder(outbox repository.OutboxRepository, logger *logger.Logger) *Recorder {
	return &Recorder{
		outbox: outbox,
		logger: logger,
	}
}

type envelope struct {
	EntityID   uuid.UUID   `json:"entity_id"`
	ActorID    uuid.UUID   `json:"actor_id"`
	ActorRole  string      `json:"actor_role"`
	OccurredAt time.Time   `json:"occurred_at"`
	Detail     interface{} `json:"detail,omitempty"`
}

// Record writes one event to the outbox.
func (r *Recorder) Record(ctx context.Context, eventType string, actor model.Actor, entityID uuid.UUID, detail interface{}) {
	payload, err := json.Marshal(envelope{
		EntityID:   entityID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: time.Now(),
		Detail:     detail,
	})
	if err != nil {
		r.logger.Error(err, "failed to marshal audit event", "event_type", eventType)
		return
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
	if err := r.outbox.Create(ctx, event); err != nil {
		r.logger.Error(err, "failed to record audit event",
			"event_type", eventType,
			"entity_id", entityID.String())
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/outbox/registry"
)

// inflight is one claimed row whose publish has been handed to Pub/Sub.
type inflight struct {
	event  models.OutboxEvent
	fields map[string]any
	result publishResult
	err    error
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForUpdate(ctx, tx, s.batchSize, s.maxAttempts)
		if err != nil || len(events) == 0 {
			return err
		}
		processed = true

		publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()

		pending := make([]*inflight, 0, len(events))
		for _, event := range events {
			pending = append(pending, s.dispatch(publishCtx, event))
		}
		for _, p := range pending {
			if err := s.settle(publishCtx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// dispatch resolves the row and starts its publish without waiting.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) *inflight {
	p := &inflight{event: event, fields: eventFields(event, nil)}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		p.err = err
		return p
	}
	p.fields = eventFields(event, resolved)

	pub := s.publishers.get(resolved.Descriptor.Topic)
	if pub == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", resolved.Descriptor.Topic))
		return p
	}
	p.result = pub.Publish(ctx, &gcppubsub.Message{
		Data:       []byte(event.Payload),
		Attributes: messageAttributes(event, resolved),
	})
	if p.result == nil {
		p.err = registry.NewNonRetryableError(errNilResult)
	}
	return p
}

// settle waits for the publish and records the outcome on tx. Only
// bookkeeping failures are returned; publish failures land on the row.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, p *inflight) error {
	err := p.err
	if err == nil {
		_, err = p.result.Get(ctx)
	}
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(ctx, tx, p.event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, markErr)
		}
		s.observe(p.event, "published")
		s.logg.Info(s.logg.WithFields(ctx, p.fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	attempt := p.event.AttemptCount + 1
	if errors.As(err, &nonRetry) || attempt >= s.maxAttempts {
		if !errors.As(err, &nonRetry) {
			err = fmt.Errorf("max publish attempts reached: %w", err)
		}
		s.logg.WarnErr(s.logg.WithFields(ctx, p.fields), "outbox event will not be retried", err)
		s.observe(p.event, "exhausted")
		if markErr := s.repo.MarkExhaustedTx(ctx, tx, p.event.ID, s.maxAttempts, err); markErr != nil {
			return fmt.Errorf("mark exhausted %s: %w", p.event.ID, markErr)
		}
		return nil
	}

	p.fields["attempt_count"] = attempt
	s.logg.WarnErr(s.logg.WithFields(ctx, p.fields), "outbox publish failed", err)
	s.observe(p.event, "retry")
	if markErr := s.repo.MarkFailedTx(ctx, tx, p.event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", p.event.ID, markErr)
	}
	return nil
}

func (s *Service) observe(event models.OutboxEvent, result string) {
	if s.metrics != nil {
		s.metrics.IncOutbox(string(event.EventType), result)
	}
}

func messageAttributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if id := resolved.Envelope.CorrelationID; id != "" {
		attrs["correlation_id"] = id
	}
	return attrs
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		fields["topic"] = resolved.Descriptor.Topic
	}
	return fields
}

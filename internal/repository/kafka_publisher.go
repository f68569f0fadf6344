package repository

import (
	"context"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/kafka"
	"MarketSleuth/pkg/logger"
)

// KafkaPublisher broadcasts signals and verdicts keyed by symbol so
// per-instrument ordering is preserved across partitions.
type KafkaPublisher struct {
	producer     *kafka.Producer
	signalTopic  string
	verdictTopic string
	log          *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, signalTopic, verdictTopic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer:     producer,
		signalTopic:  signalTopic,
		verdictTopic: verdictTopic,
		log:          log,
	}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, sig *models.AnomalySignal) error {
	return p.producer.Publish(ctx, p.signalTopic, []byte(sig.Symbol), sig)
}

// PublishVerdict emits a trimmed verdict event; full evidence bodies stay
// in the store, consumers only need the outcome.
func (p *KafkaPublisher) PublishVerdict(ctx context.Context, inv *models.InvestigationState) error {
	event := map[string]any{
		"symbol":     inv.Symbol,
		"status":     inv.Status,
		"confidence": inv.Confidence,
		"iterations": inv.Iteration,
		"root_cause": inv.RootCause,
		"started_at": inv.StartedAt,
	}
	if inv.CompletedAt != nil {
		event["completed_at"] = *inv.CompletedAt
	}
	return p.producer.Publish(ctx, p.verdictTopic, []byte(inv.Symbol), event)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

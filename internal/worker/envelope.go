package worker

import (
	"context"

	"github.com/BarkinBalci/event-ingestion-service/internal/dto"
)

// Envelope wraps a scrape trigger with the callbacks settling its message
type Envelope struct {
	Trigger      *dto.ScrapeTrigger
	MessageID    string
	ReceiveCount int

	ack    func(context.Context) error
	nack   func(context.Context) error
	extend func(context.Context, int32) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(trigger *dto.ScrapeTrigger, messageID string, ack, nack func(context.Context) error, extend func(context.Context, int32) error) *Envelope {
	return &Envelope{
		Trigger:   trigger,
		MessageID: messageID,
		ack:       ack,
		nack:      nack,
		extend:    extend,
	}
}

// Ack removes the message from the queue
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack makes the message visible again for redelivery
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}

// Extend keeps the message hidden for another seconds
func (e *Envelope) Extend(ctx context.Context, seconds int32) error {
	if e.extend != nil {
		return e.extend(ctx, seconds)
	}
	return nil
}

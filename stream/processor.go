package stream

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/listsync/store"
)

// Notifier receives classified changes for fan-out to subscribers.
type Notifier interface {
	OnItemChanged(ctx context.Context, listID, changeKind string, item store.Record) error
	OnMembershipChanged(ctx context.Context, userID, changeKind string, membership store.Record) error
}

// Outcome is the result of processing one stream record.
type Outcome struct {
	// EventID identifies the stream record.
	EventID string

	// Skipped is true for records dropped without notification: unknown
	// source or no-op modification.
	Skipped bool

	// Err is the captured failure, if any. A failed record never blocks
	// the rest of the batch.
	Err error
}

// Processor drives one stream batch through classification and fan-out.
type Processor struct {
	classifier Classifier
	config     store.Config
	notifier   Notifier
	logger     *slog.Logger
	debug      bool
}

// NewProcessor creates a stream processor.
func NewProcessor(cfg store.Config, notifier Notifier, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		classifier: NewClassifier(cfg),
		config:     cfg,
		notifier:   notifier,
		logger:     logger,
	}
}

// SetDebug enables logging of full raw records.
func (p *Processor) SetDebug(debug bool) {
	p.debug = debug
}

// Handle adapts Process to the Lambda handler signature. It never returns
// an error: redelivery, if any, is the feed's responsibility, and a
// poisoned record must not block the shard.
func (p *Processor) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	p.Process(ctx, event)
	return nil
}

// Process handles one batch of stream records, each independently, and
// returns the per-record outcomes in batch order.
func (p *Processor) Process(ctx context.Context, event events.DynamoDBEvent) []Outcome {
	p.logger.Info("processing stream batch", "records", len(event.Records))

	outcomes := make([]Outcome, 0, len(event.Records))
	for _, record := range event.Records {
		if p.debug {
			p.logger.Debug("raw stream record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"eventSourceARN", record.EventSourceArn,
			)
		}
		skipped, err := p.processRecord(ctx, record)
		if err != nil {
			p.logger.Error("failed to process record",
				"eventID", record.EventID,
				"eventName", record.EventName,
				"error", err,
			)
		}
		outcomes = append(outcomes, Outcome{
			EventID: record.EventID,
			Skipped: skipped,
			Err:     err,
		})
	}
	return outcomes
}

func (p *Processor) processRecord(ctx context.Context, record events.DynamoDBEventRecord) (skipped bool, err error) {
	source := p.classifier.Classify(record.EventSourceArn)
	if source == SourceUnknown {
		p.logger.Warn("unrecognized event source", "eventSourceARN", record.EventSourceArn)
		return true, nil
	}

	keys, err := convertImage(record.Change.Keys)
	if err != nil {
		return false, err
	}
	newItem, err := convertImage(record.Change.NewImage)
	if err != nil {
		return false, err
	}
	oldItem, err := convertImage(record.Change.OldImage)
	if err != nil {
		return false, err
	}

	if IsNoOp(oldItem, newItem) {
		p.logger.Info("no changes on subscribed fields", "eventID", record.EventID)
		return true, nil
	}

	// After-image for inserts and modifies, before-image for removes.
	item := newItem
	if item == nil {
		item = oldItem
	}

	switch source {
	case SourceItem:
		listID := keys.String(p.config.ItemPartitionKey)
		return false, p.notifier.OnItemChanged(ctx, listID, record.EventName, item)
	default:
		userID := keys.String(p.config.MembershipPartitionKey)
		return false, p.notifier.OnMembershipChanged(ctx, userID, record.EventName, item)
	}
}

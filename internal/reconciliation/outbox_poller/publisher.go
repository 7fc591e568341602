package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/outbox"
	"github.com/tabsplit/internal/platform/messaging/producers"
)

// Publisher delivers one outbox message to its destinations
type Publisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// JournalPublisher appends the change to the journal, then announces it on the
// integration topic keyed by bill id. Both steps tolerate redelivery.
type JournalPublisher struct {
	outboxRepo  outbox.Repository
	journalRepo journal.Repository
	producer    producers.EventPublisher
	logger      *slog.Logger
}

func NewJournalPublisher(
	outboxRepo outbox.Repository,
	journalRepo journal.Repository,
	producer producers.EventPublisher,
	logger *slog.Logger,
) *JournalPublisher {
	return &JournalPublisher{
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		producer:    producer,
		logger:      logger,
	}
}

func (p *JournalPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	entry, err := message.Entry()
	if err != nil {
		p.logger.Error("Corrupt outbox payload, parking message", append(message.LogAttrs(), "error", err)...)
		if markErr := p.outboxRepo.MarkFailed(ctx, message.ID); markErr != nil {
			p.logger.Error("Failed to park corrupt outbox message", "outbox_id", message.ID, "error", markErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.appendToJournal(ctx, entry, logger); err != nil {
		return err
	}

	if p.producer != nil {
		if err := p.producer.Publish(ctx, entry.BillID, entry); err != nil {
			return fmt.Errorf("failed to publish integration event %s: %w", entry.EventID, err)
		}
	}

	if err := p.outboxRepo.MarkProcessed(ctx, message.ID); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", entry.EventID, "error", err,
		)
		return fmt.Errorf("journal write for %s OK, but failed to mark outbox %d as PROCESSED: %w", entry.EventID, message.ID, err)
	}

	logger.Info("Split change published",
		"outbox_id", message.ID,
		"bill_id", entry.BillID,
		"version", entry.Version,
		"kind", entry.Kind,
	)
	return nil
}

func (p *JournalPublisher) appendToJournal(ctx context.Context, entry *journal.Entry, logger *slog.Logger) error {
	existing, err := p.journalRepo.GetByEventID(ctx, entry.EventID)
	if err != nil && !errors.Is(err, journal.ErrEntryNotFound{}) {
		logger.Error("Failed to check existing journal entry before publishing", "event_id", entry.EventID, "error", err)
		return fmt.Errorf("failed to check existing journal entry %s: %w", entry.EventID, err)
	}
	if existing != nil {
		logger.Info("Journal entry already recorded", "event_id", entry.EventID)
		return nil
	}

	if err := p.journalRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, journal.ErrDuplicateEntry{}) {
			return nil
		}
		logger.Error("Failed to create journal entry in MongoDB", "event_id", entry.EventID, "error", err)
		return fmt.Errorf("failed to create journal entry %s: %w", entry.EventID, err)
	}
	return nil
}

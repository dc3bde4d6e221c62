package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
	inboxUseCase "github.com/allisson/peertransfer/internal/inbox/usecase"
	keyQueueDomain "github.com/allisson/peertransfer/internal/keyqueue/domain"
	keyQueueUseCase "github.com/allisson/peertransfer/internal/keyqueue/usecase"
	outboxDomain "github.com/allisson/peertransfer/internal/outbox/domain"
	outboxUseCase "github.com/allisson/peertransfer/internal/outbox/usecase"
)

type queueStatus struct {
	Outbox   *outboxDomain.OutboxStatus  `json:"outbox"`
	KeyQueue *keyQueueDomain.QueueStatus `json:"keyQueue"`
	Inbox    *inboxDomain.InboxStatus    `json:"inbox"`
}

// RunOutboxStatus prints the depth of the peer outbox, the key-encryption retry queue
// and the inbox.
func RunOutboxStatus(
	ctx context.Context,
	outbox outboxUseCase.OutboxUseCase,
	keyQueue keyQueueUseCase.KeyQueueUseCase,
	inbox inboxUseCase.InboxUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var status queueStatus
	var err error

	if status.Outbox, err = outbox.Status(ctx); err != nil {
		return fmt.Errorf("failed to get outbox status: %w", err)
	}
	if status.KeyQueue, err = keyQueue.Status(ctx); err != nil {
		return fmt.Errorf("failed to get key queue status: %w", err)
	}
	if status.Inbox, err = inbox.Status(ctx); err != nil {
		return fmt.Errorf("failed to get inbox status: %w", err)
	}

	logger.Debug("queue status collected",
		slog.Int64("outbox_total", status.Outbox.Total),
		slog.Int64("keyqueue_pending", status.KeyQueue.Pending),
		slog.Int64("inbox_total", status.Inbox.Total),
	)

	if format == "json" {
		return writeJSON(writer, status)
	}

	_, _ = fmt.Fprintf(writer, "Outbox: %d item(s), %d checked out\n", status.Outbox.Total, status.Outbox.CheckedOut)
	if status.Outbox.NextRunAt != nil {
		_, _ = fmt.Fprintf(writer, "Outbox next run: %s\n", status.Outbox.NextRunAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(writer, "Key queue: %d pending, %d undeliverable\n",
		status.KeyQueue.Pending, status.KeyQueue.Undeliverable)
	_, _ = fmt.Fprintf(writer, "Inbox: %d item(s), %d popped\n", status.Inbox.Total, status.Inbox.Popped)
	return nil
}

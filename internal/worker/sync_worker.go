// Package worker consumes notification messages: every message is relayed
// to a local notifier, and successful payment mutations trigger a refresh
// of the Google Sheets mirror of the payment history.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"paytrack/internal/amqp"
	"paytrack/internal/core"
	applog "paytrack/internal/log"
	"paytrack/internal/notify"
)

// PaymentSource lists the full payment history.
type PaymentSource interface {
	AllPayments(ctx context.Context, filters *core.PaymentFilters, pageSize int) ([]core.Payment, error)
}

// Mirror replaces the external copy of the history.
type Mirror interface {
	Export(ctx context.Context, payments []core.Payment) (string, error)
}

// SyncWorker handles notification messages from AMQP
type SyncWorker struct {
	source   PaymentSource
	mirror   Mirror
	notifier notify.Notifier
	pageSize int

	// syncMu serializes Sync so an older read can never be exported last.
	syncMu sync.Mutex

	mu       sync.Mutex
	lastSync time.Time
	// marked counts payment mutations seen; synced is the count covered by
	// the last successful export.
	marked uint64
	synced uint64
}

func NewSyncWorker(source PaymentSource, mirror Mirror, notifier notify.Notifier, pageSize int) *SyncWorker {
	if notifier == nil {
		notifier = notify.Nop
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &SyncWorker{
		source:   source,
		mirror:   mirror,
		notifier: notifier,
		pageSize: pageSize,
	}
}

// HandleNotification relays msg and, for successful payment mutations,
// marks the mirror dirty and syncs it.
func (w *SyncWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	slog.InfoContext(ctx, "Processing notification message",
		"level", msg.Level,
		"title", msg.Title,
		applog.FieldOperation, msg.Operation,
		applog.FieldRequestID, msg.RequestID)

	n := notify.Notification{
		Level:     notify.Level(msg.Level),
		Title:     msg.Title,
		Message:   msg.Message,
		Operation: msg.Operation,
		Resource:  msg.Resource,
		Timestamp: msg.Timestamp,
	}
	if err := w.notifier.Notify(ctx, n); err != nil {
		slog.WarnContext(ctx, "Failed to relay notification", "error", err)
	}

	if !affectsPayments(msg) {
		return nil
	}

	w.markPending()
	return w.SyncIfPending(ctx)
}

func (w *SyncWorker) markPending() {
	w.mu.Lock()
	w.marked++
	w.mu.Unlock()
}

// SyncIfPending exports the history when a mutation is waiting to be mirrored.
func (w *SyncWorker) SyncIfPending(ctx context.Context) error {
	if !w.Pending() {
		return nil
	}
	return w.Sync(ctx)
}

// Pending reports whether a mutation has not reached the mirror yet.
func (w *SyncWorker) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.marked != w.synced
}

// Sync exports the full history to the mirror.
func (w *SyncWorker) Sync(ctx context.Context) error {
	if w.mirror == nil {
		slog.DebugContext(ctx, "No mirror configured, skipping sync")
		return nil
	}

	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	// Mutations marked after this point may be missing from the read.
	w.mu.Lock()
	covered := w.marked
	w.mu.Unlock()

	payments, err := w.source.AllPayments(ctx, nil, w.pageSize)
	if err != nil {
		return fmt.Errorf("list payments for sync: %w", err)
	}

	rng, err := w.mirror.Export(ctx, payments)
	if err != nil {
		return fmt.Errorf("export payments: %w", err)
	}

	w.mu.Lock()
	if covered > w.synced {
		w.synced = covered
	}
	w.lastSync = time.Now()
	w.mu.Unlock()

	slog.InfoContext(ctx, "Payment mirror synced", "range", rng, "payments", len(payments))
	return nil
}

// LastSync returns the time of the last successful sync.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

func affectsPayments(msg *amqp.NotificationMessage) bool {
	if msg.Level != string(notify.LevelSuccess) {
		return false
	}
	switch msg.Operation {
	case applog.OpCreate, applog.OpUpdate, applog.OpDelete:
		return msg.Resource == notify.ResourcePayment
	default:
		return false
	}
}

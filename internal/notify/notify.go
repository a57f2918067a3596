// Package notify delivers user-visible success and failure messages for
// mutations to one or more surfaces.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"paytrack/internal/amqp"
	"paytrack/internal/apierr"
	applog "paytrack/internal/log"
	"paytrack/internal/middleware/trace"
)

// Level is the notification severity.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Resources a notification can be about.
const (
	ResourcePayment = "payment"
	ResourceWallet  = "wallet"
)

// Notification is one user-visible outcome.
type Notification struct {
	Level     Level
	Title     string
	Message   string
	Operation string
	Resource  string
	Timestamp time.Time
}

// For tags the notification with the resource it concerns.
func (n Notification) For(resource string) Notification {
	n.Resource = resource
	return n
}

// Success builds a success notification.
func Success(op, title, message string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Message: message, Operation: op, Timestamp: time.Now()}
}

// Failure builds an error notification whose message is the user-facing
// text for err.
func Failure(op, title string, err error) Notification {
	return Notification{Level: LevelError, Title: title, Message: apierr.UserMessage(err), Operation: op, Timestamp: time.Now()}
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Nop discards notifications.
var Nop Notifier = Func(func(context.Context, Notification) error { return nil })

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *applog.Logger
}

func NewLogNotifier(logger *applog.Logger) *LogNotifier {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LogNotifier{logger: logger.WithComponent(applog.ComponentNotify)}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	args := []any{"title", n.Title, "message", n.Message, applog.FieldOperation, n.Operation}
	if n.Level == LevelError {
		l.logger.WarnContext(ctx, "Notification", args...)
	} else {
		l.logger.InfoContext(ctx, "Notification", args...)
	}
	return nil
}

// WriterNotifier prints one line per notification, for terminals.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (wn *WriterNotifier) Notify(_ context.Context, n Notification) error {
	mark := "✓"
	if n.Level == LevelError {
		mark = "✗"
	}
	wn.mu.Lock()
	defer wn.mu.Unlock()
	if n.Message == "" {
		_, err := fmt.Fprintf(wn.w, "%s %s\n", mark, n.Title)
		return err
	}
	_, err := fmt.Fprintf(wn.w, "%s %s: %s\n", mark, n.Title, n.Message)
	return err
}

// Publisher is the subset of the AMQP client used for notifications.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// AMQPNotifier forwards notifications to a message broker.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(p Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (a *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	msg := amqp.NewNotificationMessage(string(n.Level), n.Title, n.Message, n.Operation)
	if !n.Timestamp.IsZero() {
		msg.Timestamp = n.Timestamp
	}
	msg.Resource = n.Resource
	msg.RequestID = trace.GetRequestID(ctx)
	return a.publisher.PublishNotification(ctx, msg)
}

// Multi fans a notification out to every notifier. All are attempted; the
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

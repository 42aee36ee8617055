package notify

import (
	"context"
	"log/slog"
	"sync"

	"kloset/internal/app/policies"
	domainuser "kloset/internal/domain/user"
)

// LogNotifier records notifications to the structured log. It stands in for
// an email or push provider; delivery failures never block commands, so a
// best-effort sink is enough for local and test runs.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, to domainuser.ID, subject, body string) error {
	if n.logger != nil {
		n.logger.Info("notification", "to", to, "subject", subject, "body", body)
	}
	return nil
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	Sent []Notification
}

type Notification struct {
	To      domainuser.ID
	Subject string
	Body    string
}

func (r *Recorder) Notify(ctx context.Context, to domainuser.ID, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, Notification{To: to, Subject: subject, Body: body})
	return nil
}

var _ policies.NotifierPort = (*LogNotifier)(nil)
var _ policies.NotifierPort = (*Recorder)(nil)

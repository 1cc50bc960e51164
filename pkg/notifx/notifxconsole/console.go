package notifxconsole

import (
	"context"
	"strings"
	"sync"

	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/Abraxas-365/lingua/pkg/notifx"
)

// ConsoleProvider logs emails instead of sending them and keeps them in an
// outbox. Intended for development and tests.
type ConsoleProvider struct {
	mu     sync.Mutex
	outbox []notifx.EmailMessage
}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage, opts ...notifx.Option) error {
	so := notifx.ApplySendOptions(opts)

	logx.WithFields(logx.Fields{
		"from":     msg.From,
		"to":       strings.Join(msg.To, ", "),
		"subject":  msg.Subject,
		"template": so.Tags["template"],
	}).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}

	p.mu.Lock()
	p.outbox = append(p.outbox, msg)
	p.mu.Unlock()
	return nil
}

// Outbox returns a copy of every message sent so far.
func (p *ConsoleProvider) Outbox() []notifx.EmailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifx.EmailMessage(nil), p.outbox...)
}

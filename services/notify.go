package services

import (
	"log"

	"ethics-review-api/config"
)

// Notifier delivers workflow emails. Delivery is fire-and-forget; a failed
// send is reported in the log and nothing else.
type Notifier interface {
	Send(to []string, subject, html string) error
}

// MailNotifier sends through the configured SMTP dialer.
type MailNotifier struct{}

func (MailNotifier) Send(to []string, subject, html string) error {
	return config.SendMail(to, subject, html)
}

// NoopNotifier discards all messages. Used in tests and when SMTP is not
// configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(to []string, subject, html string) error {
	return nil
}

// notifyAsync dispatches a message without blocking the caller.
func notifyAsync(n Notifier, to []string, subject, html string) {
	if n == nil || len(to) == 0 {
		return
	}
	go func() {
		if err := n.Send(to, subject, html); err != nil {
			log.Printf("Warning: failed to send notification %q: %v", subject, err)
		}
	}()
}

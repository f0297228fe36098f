package memory

import (
	"context"
	"log"
	"sync"

	"assessment-service/internal/notify"
)

// Outbox is an app.EmailSender that keeps messages in memory instead of sending them.
// It backs the "log" mail driver and the tests.
type Outbox struct {
	mu       sync.Mutex
	messages []notify.Message
	// Fail, when set, is returned for messages it matches.
	Fail func(notify.Message) error
	// Verbose logs one line per accepted message.
	Verbose bool
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.Fail != nil {
		if err := o.Fail(msg); err != nil {
			return err
		}
	}
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	if o.Verbose {
		log.Printf("outbox: to=%v subject=%q attachments=%d", msg.To, msg.Subject, len(msg.Attachments))
	}
	return nil
}

// Messages returns a copy of the accepted messages.
func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.messages...)
}

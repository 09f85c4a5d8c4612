// Package mailer defines the outbound mail transport port (interface).
package mailer

import "context"

// Mailer is the port interface for sending HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

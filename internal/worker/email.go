// Package worker contains the background job consumers. Each worker
// subscribes to one queue subject and processes messages independently of
// the request path that published them.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/archsaint/storefront/internal/port/mailer"
	"github.com/archsaint/storefront/internal/port/messagequeue"
)

// EmailWorker consumes jobs.email messages and sends order confirmation
// mail. A send failure returns an error so the queue redelivers the job.
type EmailWorker struct {
	queue  messagequeue.Queue
	mailer mailer.Mailer
	tmpl   *template.Template
	cancel func()
}

// NewEmailWorker creates an EmailWorker.
func NewEmailWorker(queue messagequeue.Queue, m mailer.Mailer) *EmailWorker {
	return &EmailWorker{
		queue:  queue,
		mailer: m,
		tmpl:   template.Must(template.New("order").Parse(orderBodyTemplate)),
	}
}

// Start subscribes the worker to its subject. Call Stop to unsubscribe.
func (w *EmailWorker) Start(ctx context.Context) error {
	cancel, err := w.queue.Subscribe(ctx, messagequeue.SubjectEmail, w.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectEmail, err)
	}
	w.cancel = cancel
	return nil
}

// Stop cancels the worker's subscription.
func (w *EmailWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *EmailWorker) handle(ctx context.Context, subject string, data []byte) error {
	var payload messagequeue.EmailPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// A malformed payload will never become valid; redelivery would
		// only churn, so it is dropped here.
		slog.Error("email payload unmarshal failed", "error", err)
		return nil
	}

	var body bytes.Buffer
	if err := w.tmpl.Execute(&body, payload.Order); err != nil {
		slog.Error("email template render failed", "order_id", payload.Order.ID, "error", err)
		return nil
	}

	mailSubject := fmt.Sprintf("Order Confirmation #%d - Thank you for shopping with us!", payload.Order.ID)
	if err := w.mailer.Send(ctx, payload.To, mailSubject, body.String()); err != nil {
		return fmt.Errorf("send order mail %d: %w", payload.Order.ID, err)
	}

	slog.Info("order confirmation sent", "order_id", payload.Order.ID, "to", payload.To)
	return nil
}

const orderBodyTemplate = `<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Thank you for your order!</h2>
  <p>Your order <strong>#{{.ID}}</strong> has been received and is being processed.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr style="border-bottom: 1px solid #ccc;">
      <th align="left">Product</th><th align="right">Qty</th><th align="right">Price</th>
    </tr>
    {{range .Items}}
    <tr>
      <td>{{if .Product}}{{.Product.Name}}{{else}}#{{.ProductID}}{{end}}</td>
      <td align="right">{{.Quantity}}</td>
      <td align="right">{{printf "%.2f" .Price}}</td>
    </tr>
    {{end}}
    <tr style="border-top: 1px solid #ccc;">
      <td><strong>Total ({{.TotalItems}} items)</strong></td>
      <td></td>
      <td align="right"><strong>{{printf "%.2f" .TotalPrice}}</strong></td>
    </tr>
  </table>
  <p>Delivery method: {{.DeliveryMethod}}<br>
     Shipping address: {{.ShippingAddress}}</p>
</body>
</html>`

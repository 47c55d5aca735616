// Package service bridges the resolvers to the message broker. Publishing is
// best-effort: errors are logged and returned, and callers are free to
// ignore them without interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/utils"
)

// QueueNotifier publishes account-email events to RabbitMQ. It implements
// graph.Notifier.
type QueueNotifier struct {
	URL   string
	Codec *utils.TokenCodec
	Log   *slog.Logger
}

func NewQueueNotifier(url string, codec *utils.TokenCodec, log *slog.Logger) *QueueNotifier {
	return &QueueNotifier{URL: url, Codec: codec, Log: log}
}

// Notify mints the link token for the template and publishes the event to
// the account.email queue. Messages are marked persistent so a broker
// restart does not lose pending emails.
func (n *QueueNotifier) Notify(ctx context.Context, u *model.User, template string) error {
	kind := utils.ConfirmToken
	if template == queue.TemplateForgotPassword {
		kind = utils.ForgotToken
	}
	token, err := n.Codec.Issue(kind, u.Email)
	if err != nil {
		n.Log.Warn("mail-publisher: issue token failed", "error", err)
		return err
	}

	ev := queue.EmailRequestedEvent{
		Email:       u.Email,
		Username:    u.Username,
		Template:    template,
		Token:       token,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}

	conn, err := amqp.Dial(n.URL)
	if err != nil {
		n.Log.Warn("mail-publisher: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		n.Log.Warn("mail-publisher: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare so publisher and consumer can start in any order.
	if _, err := ch.QueueDeclare(queue.EmailQueueName, true, false, false, false, nil); err != nil {
		n.Log.Warn("mail-publisher: queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		n.Log.Warn("mail-publisher: marshal event failed", "error", err)
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", queue.EmailQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		n.Log.Warn("mail-publisher: publish failed", "error", err)
		return err
	}
	return nil
}

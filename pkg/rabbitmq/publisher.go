package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"course-media/config"
	"course-media/dto"
)

const (
	exchangeName = "media_exchange"
	routingKey   = "video.stored"
)

// Publisher emits video.stored events after assembly so downstream
// workers (transcoders, indexers) can pick the asset up.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(ctx context.Context, conn *amqp.Connection, cfg *config.RabbitMQ) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	kind := cfg.Kind
	if kind == "" {
		kind = "topic"
	}
	exchange := cfg.ExchangeName
	if exchange == "" {
		exchange = exchangeName
	}

	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", exchange).Msg("failed to declare exchange")
		_ = ch.Close()
		return nil, err
	}

	return &Publisher{ch: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishVideoStored(ctx context.Context, event dto.VideoStoredEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

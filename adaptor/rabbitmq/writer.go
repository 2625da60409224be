package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/record"
	"github.com/compose/conduit/selector"
)

const (
	// DefaultDeliveryMode is used when writing messages to an exchange.
	DefaultDeliveryMode = amqp.Transient

	// DefaultRoutingKey is set to an empty string so all messages published to the exchange will
	// get routed to whatever queues are bound to it.
	DefaultRoutingKey = ""
)

var (
	_ client.Writer = &publisher{}
)

// publisher implements client.Writer by publishing records to the cluster based on its configuration.
type publisher struct {
	exchange     string
	routingKey   string
	keyInField   bool
	deliveryMode uint8
}

func (w *publisher) Write(_ context.Context, s client.Session, rec interface{}) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	key, msg, err := w.publishing(rec, time.Now())
	if err != nil {
		return err
	}
	return session.channel.Publish(w.exchange, key, false, false, msg)
}

// publishing encodes rec and resolves its routing key.
func (w *publisher) publishing(rec interface{}, ts time.Time) (string, amqp.Publishing, error) {
	body, err := json.Marshal(record.Normalize(rec))
	if err != nil {
		return "", amqp.Publishing{}, err
	}
	key := w.routingKey
	if w.keyInField {
		v, ok := record.Get(rec, w.routingKey)
		if !ok {
			return "", amqp.Publishing{}, fmt.Errorf("routing key field %s missing", w.routingKey)
		}
		key = selector.Stringify(v)
	}
	return key, amqp.Publishing{
		DeliveryMode: w.deliveryMode,
		Timestamp:    ts,
		ContentType:  "application/json",
		Body:         body,
	}, nil
}

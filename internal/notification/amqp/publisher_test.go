package amqp

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declaredKind string
	durable      bool
	declareErr   error
	sent         []published
	closed       bool
}

func (f *fakeChannel) ExchangeDeclare(_ string, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.declaredKind, f.durable = kind, durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherDeclaresDurableTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "crm.events")
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "leads.created", []byte(`{"a":1}`)))
	assert.Equal(t, amqp.ExchangeTopic, ch.declaredKind)
	assert.True(t, ch.durable)
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "crm.events", ch.sent[0].exchange)
	assert.Equal(t, "leads.created", ch.sent[0].key)
	assert.Equal(t, amqp.Persistent, ch.sent[0].msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisherReportsDeclareFailure(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "crm.events")
	assert.ErrorContains(t, err, "access refused")
}

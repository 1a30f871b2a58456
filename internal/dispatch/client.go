package dispatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
)

// Client is the management-side end of the private channel: a
// request/response RPC over RabbitMQ using an exclusive reply queue and
// correlation ids. One Client is shared by all callers.
type Client struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	replyQueue string
	log        *zap.Logger

	mu      sync.Mutex
	pending map[string]chan amqp.Delivery
}

func NewClient(url, queue string, log *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// The request queue is declared on both ends so either side can
	// start first.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(reply.Name, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:       conn,
		ch:         ch,
		queue:      queue,
		replyQueue: reply.Name,
		log:        log,
		pending:    make(map[string]chan amqp.Delivery),
	}
	go c.route(deliveries)

	log.Info("channel client connected", zap.String("queue", queue), zap.String("reply_queue", reply.Name))
	return c, nil
}

func (c *Client) route(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.mu.Lock()
		ch, ok := c.pending[d.CorrelationId]
		if ok {
			delete(c.pending, d.CorrelationId)
		}
		c.mu.Unlock()
		if !ok {
			// Late reply after the caller gave up. Accepted race, the
			// caller has already treated the call as failed.
			c.log.Warn("dropping uncorrelated reply", zap.String("correlation_id", d.CorrelationId))
			continue
		}
		ch <- d
	}
}

// Call publishes an envelope and waits for the correlated reply until
// ctx expires. All failure modes come back as *apperrors.ChannelError.
func (c *Client) Call(ctx context.Context, pattern string, payload any) (json.RawMessage, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &apperrors.ChannelError{Code: apperrors.CodeInvalidRequest, Message: err.Error()}
		}
		data = b
	}

	body, err := json.Marshal(Envelope{Pattern: pattern, Data: data})
	if err != nil {
		return nil, &apperrors.ChannelError{Code: apperrors.CodeInvalidRequest, Message: err.Error()}
	}

	corrID := uuid.New().String()
	replyCh := make(chan amqp.Delivery, 1)

	c.mu.Lock()
	c.pending[corrID] = replyCh
	c.mu.Unlock()

	err = c.ch.Publish("", c.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       c.replyQueue,
		Body:          body,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return nil, &apperrors.ChannelError{Code: apperrors.CodeConnection, Message: err.Error()}
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
		return nil, &apperrors.ChannelError{Code: apperrors.CodeTimeout, Message: "no response within deadline"}
	case d := <-replyCh:
		return d.Body, nil
	}
}

// SendEmail performs a send_phishing_email exchange.
func (c *Client) SendEmail(ctx context.Context, req SendRequest) (*SendResult, error) {
	body, err := c.Call(ctx, PatternSendEmail, req)
	if err != nil {
		return nil, err
	}

	var res SendResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &apperrors.ChannelError{Code: apperrors.CodeBadResponse, Message: err.Error()}
	}
	return &res, nil
}

// HealthCheck performs a health_check exchange.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResult, error) {
	body, err := c.Call(ctx, PatternHealthCheck, nil)
	if err != nil {
		return nil, err
	}

	var res HealthResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &apperrors.ChannelError{Code: apperrors.CodeBadResponse, Message: err.Error()}
	}
	return &res, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
)

// Server is the simulation-side end of the private channel: it consumes
// the request queue and replies to the caller's reply queue with the
// original correlation id.
type Server struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	handler  Handler
	prefetch int
	log      *zap.Logger
}

func NewServer(url, queue string, prefetch int, handler Handler, log *zap.Logger) (*Server, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, err
	}

	return &Server{
		conn:     conn,
		ch:       ch,
		queue:    queue,
		handler:  handler,
		prefetch: prefetch,
		log:      log,
	}, nil
}

// Serve blocks consuming requests until ctx is cancelled or the
// delivery channel closes.
func (s *Server) Serve(ctx context.Context) error {
	deliveries, err := s.ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	s.log.Info("channel server consuming", zap.String("queue", s.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			s.handle(ctx, d)
		}
	}
}

// handle dispatches one request and always produces a structured reply;
// malformed input never escapes as a broker-level failure.
func (s *Server) handle(ctx context.Context, d amqp.Delivery) {
	var response any

	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		response = SendResult{
			Success: false,
			Message: "malformed request envelope",
			Error:   &ErrorDetail{Code: apperrors.CodeInvalidRequest, Message: err.Error()},
		}
	} else {
		response = s.dispatch(ctx, env)
	}

	body, err := json.Marshal(response)
	if err != nil {
		s.log.Error("failed to marshal response", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if d.ReplyTo != "" {
		err = s.ch.Publish("", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Body:          body,
		})
		if err != nil {
			s.log.Error("failed to publish reply", zap.Error(err), zap.String("reply_to", d.ReplyTo))
		}
	}

	_ = d.Ack(false)
}

func (s *Server) dispatch(ctx context.Context, env Envelope) any {
	start := time.Now()

	switch env.Pattern {
	case PatternSendEmail:
		var req SendRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return SendResult{
				Success: false,
				Message: "malformed send request",
				Error:   &ErrorDetail{Code: apperrors.CodeInvalidRequest, Message: err.Error()},
			}
		}
		if !req.Valid() {
			return SendResult{
				Success: false,
				Message: "send request is missing required fields",
				Error:   &ErrorDetail{Code: apperrors.CodeInvalidRequest, Message: "recipient_email, subject, email_content and attempt_id are required"},
			}
		}
		res := s.handler.HandleSend(ctx, req)
		s.log.Info("send handled",
			zap.String("attempt_id", req.AttemptID),
			zap.Bool("success", res.Success),
			zap.Duration("took", time.Since(start)),
		)
		return res

	case PatternHealthCheck:
		return s.handler.HandleHealthCheck(ctx)

	default:
		s.log.Warn("unknown pattern", zap.String("pattern", env.Pattern))
		return SendResult{
			Success: false,
			Message: "unknown request pattern",
			Error:   &ErrorDetail{Code: apperrors.CodeUnknownPattern, Message: env.Pattern},
		}
	}
}

func (s *Server) Close() error {
	return s.conn.Close()
}

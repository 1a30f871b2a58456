package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/dispatch"
)

type fakeTransport struct {
	sent    []*Message
	sendErr error
	healthy bool
}

func (f *fakeTransport) Send(m *Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeTransport) HealthCheck() bool { return f.healthy }

func TestHandleSendSubstitutesEveryPlaceholder(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, "https://sim.example.com/t/", zap.NewNop())

	req := dispatch.SendRequest{
		RecipientEmail: "a@example.com",
		Subject:        "Reset your password",
		EmailContent:   `<p><a href="{{TRACKING_LINK}}">first</a> and <a href="{{TRACKING_LINK}}">second</a>, generated {{TIMESTAMP}}</p>`,
		AttemptID:      "c0ffee",
	}

	res := d.HandleSend(context.Background(), req)
	require.True(t, res.Success)
	require.NotNil(t, res.SentAt)
	require.Len(t, ft.sent, 1)

	msg := ft.sent[0]
	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Equal(t, 2, strings.Count(msg.HTML, "https://sim.example.com/t/c0ffee"))
	assert.NotContains(t, msg.HTML, "{{TRACKING_LINK}}")
	assert.NotContains(t, msg.HTML, "{{TIMESTAMP}}")
}

func TestHandleSendDerivesTextFallback(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, "https://sim.example.com/t", zap.NewNop())

	req := dispatch.SendRequest{
		RecipientEmail: "a@example.com",
		Subject:        "s",
		EmailContent:   "<html><body><h1>Hello</h1>\n\n  <p>Click   <a href=\"{{TRACKING_LINK}}\">here</a></p></body></html>",
		AttemptID:      "x1",
	}

	res := d.HandleSend(context.Background(), req)
	require.True(t, res.Success)
	require.Len(t, ft.sent, 1)

	text := ft.sent[0].Text
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, ">")
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "Click here")
	assert.NotContains(t, text, "  ", "whitespace should be collapsed")
}

func TestHandleSendTransportFailure(t *testing.T) {
	ft := &fakeTransport{sendErr: errors.New("smtp: 550 relay denied")}
	d := NewDispatcher(ft, "https://sim.example.com/t", zap.NewNop())

	res := d.HandleSend(context.Background(), dispatch.SendRequest{
		RecipientEmail: "a@example.com",
		Subject:        "s",
		EmailContent:   "{{TRACKING_LINK}}",
		AttemptID:      "x2",
	})

	require.False(t, res.Success)
	assert.Nil(t, res.SentAt)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.CodeSendFailed, res.Error.Code)
	assert.Contains(t, res.Error.Message, "relay denied")
}

func TestHandleHealthCheck(t *testing.T) {
	d := NewDispatcher(&fakeTransport{healthy: true}, "https://x/t", zap.NewNop())
	res := d.HandleHealthCheck(context.Background())
	assert.Equal(t, dispatch.HealthHealthy, res.Status)
	assert.True(t, res.EmailServiceReady)

	d = NewDispatcher(&fakeTransport{healthy: false}, "https://x/t", zap.NewNop())
	res = d.HandleHealthCheck(context.Background())
	assert.Equal(t, dispatch.HealthUnhealthy, res.Status)
	assert.False(t, res.EmailServiceReady)
}

package mailer

import (
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is a fully-resolved email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers messages. Implementations report success or
// failure per message; liveness is a separate, non-gating probe.
type Transport interface {
	Send(m *Message) error
	HealthCheck() bool
}

// SMTPTransport wraps gomail with a bounded connection pool: at most
// maxConns open SMTP connections, each reused for up to maxPerConn
// messages before being redialed.
type SMTPTransport struct {
	dialer     *gomail.Dialer
	fromName   string
	fromEmail  string
	maxPerConn int

	idle  chan *pooledConn
	slots chan struct{}

	log *zap.Logger
}

type pooledConn struct {
	sc   gomail.SendCloser
	sent int
}

func NewSMTPTransport(host string, port int, user, password, fromName, fromEmail string, maxConns, maxPerConn int, log *zap.Logger) *SMTPTransport {
	if maxConns <= 0 {
		maxConns = 5
	}
	if maxPerConn <= 0 {
		maxPerConn = 100
	}
	return &SMTPTransport{
		dialer:     gomail.NewDialer(host, port, user, password),
		fromName:   fromName,
		fromEmail:  fromEmail,
		maxPerConn: maxPerConn,
		idle:       make(chan *pooledConn, maxConns),
		slots:      make(chan struct{}, maxConns),
		log:        log,
	}
}

func (t *SMTPTransport) Send(m *Message) error {
	pc, err := t.acquire()
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", t.fromEmail, t.fromName)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	msg.AddAlternative("text/html", m.HTML)

	if err := gomail.Send(pc.sc, msg); err != nil {
		t.release(pc, true)
		return err
	}

	t.release(pc, false)
	return nil
}

// HealthCheck dials the server and closes the connection. Used for
// liveness reporting only; it does not gate sends.
func (t *SMTPTransport) HealthCheck() bool {
	sc, err := t.dialer.Dial()
	if err != nil {
		t.log.Warn("smtp health check failed", zap.Error(err))
		return false
	}
	_ = sc.Close()
	return true
}

// acquire takes an idle connection if one exists, otherwise waits for a
// pool slot and dials. Pool exhaustion shows up as latency, not errors.
func (t *SMTPTransport) acquire() (*pooledConn, error) {
	select {
	case pc := <-t.idle:
		return pc, nil
	default:
	}

	t.slots <- struct{}{}

	select {
	case pc := <-t.idle:
		<-t.slots
		return pc, nil
	default:
	}

	sc, err := t.dialer.Dial()
	if err != nil {
		<-t.slots
		return nil, err
	}
	return &pooledConn{sc: sc}, nil
}

func (t *SMTPTransport) release(pc *pooledConn, broken bool) {
	pc.sent++
	if broken || pc.sent >= t.maxPerConn {
		_ = pc.sc.Close()
		<-t.slots
		return
	}
	select {
	case t.idle <- pc:
	default:
		_ = pc.sc.Close()
		<-t.slots
	}
}

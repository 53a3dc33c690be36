package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	templateCoinsCredited = "coins_credited"
	queueSize             = 100
	sendTimeout           = 10 * time.Second
)

// Service renders templates and sends emails from a background worker.
type Service struct {
	sender       Sender
	templates    map[string]*template.Template
	baseTemplate *template.Template
	queue        chan *QueuedEmail
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

// QueuedEmail represents an email in the send queue
type QueuedEmail struct {
	To           string
	ToName       string
	Subject      string
	TemplateName string
	Data         interface{}
}

// NewService creates email service and starts its worker
func NewService(sender Sender) *Service {
	s := &Service{
		sender:       sender,
		templates:    make(map[string]*template.Template),
		baseTemplate: template.Must(template.New("base").Parse(BaseTemplate)),
		queue:        make(chan *QueuedEmail, queueSize),
	}
	s.templates[templateCoinsCredited] = template.Must(template.New(templateCoinsCredited).Parse(CoinsCreditedTemplate))

	s.wg.Add(1)
	go s.worker()

	return s
}

// worker processes queued emails asynchronously
func (s *Service) worker() {
	defer s.wg.Done()

	for email := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := s.send(ctx, email); err != nil {
			log.Error().Err(err).
				Str("to", email.To).
				Str("template", email.TemplateName).
				Msg("Failed to send email")
		}
		cancel()
	}
}

func (s *Service) send(ctx context.Context, email *QueuedEmail) error {
	tmpl, ok := s.templates[email.TemplateName]
	if !ok {
		return fmt.Errorf("email template %q not found", email.TemplateName)
	}

	var content bytes.Buffer
	if err := tmpl.Execute(&content, email.Data); err != nil {
		return err
	}

	var html bytes.Buffer
	if err := s.baseTemplate.Execute(&html, map[string]interface{}{
		"Content": template.HTML(content.String()),
	}); err != nil {
		return err
	}

	return s.sender.Send(ctx, &Message{
		To:          email.To,
		ToName:      email.ToName,
		Subject:     email.Subject,
		HTMLContent: html.String(),
	})
}

// Queue adds an email to the async send queue. It never blocks; a full
// queue drops the email.
func (s *Service) Queue(email *QueuedEmail) bool {
	select {
	case s.queue <- email:
		return true
	default:
		log.Warn().Str("to", email.To).Msg("Email queue full, dropping email")
		return false
	}
}

// SendSync sends an email synchronously (blocking)
func (s *Service) SendSync(ctx context.Context, email *QueuedEmail) error {
	return s.send(ctx, email)
}

// Close drains the queue and stops the worker
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}

// CoinsCreditedData fills CoinsCreditedTemplate.
type CoinsCreditedData struct {
	Name      string
	Coins     int
	Balance   int
	WalletURL string
}

// SendCoinsCredited queues a coin purchase receipt
func (s *Service) SendCoinsCredited(to, toName string, data CoinsCreditedData) bool {
	if data.Name == "" {
		data.Name = toName
	}
	return s.Queue(&QueuedEmail{
		To:           to,
		ToName:       toName,
		Subject:      fmt.Sprintf("%d coins added to your TutorLink wallet", data.Coins),
		TemplateName: templateCoinsCredited,
		Data:         data,
	})
}

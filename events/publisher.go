package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"city-samadhan/types"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ReportSubmitted is published once a report has been persisted.
type ReportSubmitted struct {
	ReportID  string                `json:"reportId"`
	UserID    string                `json:"userId"`
	Title     string                `json:"title"`
	Category  types.Category        `json:"category"`
	Location  *types.LocationRecord `json:"location"`
	Images    int                   `json:"images"`
	VoiceNote bool                  `json:"voiceNote"`
	Submitted time.Time             `json:"submittedAt"`
}

func NewReportSubmitted(id string, report types.Report, at time.Time) ReportSubmitted {
	return ReportSubmitted{
		ReportID:  id,
		UserID:    report.UserID,
		Title:     report.Title,
		Category:  report.Category,
		Location:  report.Location,
		Images:    len(report.Images),
		VoiceNote: report.VoiceNote != nil,
		Submitted: at.UTC(),
	}
}

// Publisher sends JSON events to a durable direct exchange, reconnecting
// once when the connection has dropped.
type Publisher struct {
	mu         sync.Mutex
	amqpURL    string
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	log        logrus.FieldLogger
}

func NewPublisher(amqpURL, exchange, routingKey string, log logrus.FieldLogger) (*Publisher, error) {
	p := &Publisher{
		amqpURL:    amqpURL,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) PublishReportSubmitted(ctx context.Context, event ReportSubmitted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	return p.publish(ctx, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    event.ReportID,
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		if chErr := p.channel.Close(); chErr != nil {
			err = chErr
		}
		p.channel = nil
	}
	if p.conn != nil {
		if connErr := p.conn.Close(); connErr != nil && err == nil {
			err = connErr
		}
		p.conn = nil
	}
	return err
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func isConnClosedErr(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, amqp.ErrClosed) || strings.Contains(err.Error(), "channel/connection is not open")
}

func (p *Publisher) publish(ctx context.Context, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.conn == nil || p.conn.IsClosed() || p.channel == nil {
		p.closeLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	err := p.channel.Publish(p.exchange, p.routingKey, false, false, msg)
	if err != nil && isConnClosedErr(err) {
		p.log.WithError(err).Warn("RabbitMQ connection lost, reconnecting")
		p.closeLocked()
		if connErr := p.connectLocked(); connErr != nil {
			return fmt.Errorf("failed to publish message: %w (reconnect failed: %v)", err, connErr)
		}
		err = p.channel.Publish(p.exchange, p.routingKey, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

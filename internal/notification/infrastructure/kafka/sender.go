package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/printhouse/printflow/internal/notification/application"
	"github.com/printhouse/printflow/pkg/tracing"
)

type Writer struct {
	*kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Sender hands rendered notifications to the delivery gateway via a topic;
// the actual SMS/email/chat send happens downstream.
type Sender struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewSender(log *slog.Logger, producer Producer, topic string) *Sender {
	return &Sender{log: log, producer: producer, topic: topic}
}

type notificationMessage struct {
	OrderID int64  `json:"order_id"`
	Channel string `json:"channel"`
	RuleID  int64  `json:"rule_id"`
	Number  string `json:"number"`
	Message string `json:"message"`
}

func (s *Sender) Send(ctx context.Context, c application.Candidate, ruleID int64, message string) error {
	payload, err := json.Marshal(notificationMessage{
		OrderID: c.OrderID,
		Channel: string(c.Channel),
		RuleID:  ruleID,
		Number:  c.Number,
		Message: message,
	})
	if err != nil {
		return err
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte("OrderNotification")}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(strconv.FormatInt(c.OrderID, 10)),
		Value:   payload,
		Headers: headers,
	}
	if err := s.producer.WriteMessages(ctx, msg); err != nil {
		s.log.Error("notification dispatch failed", "order_id", c.OrderID, "rule_id", ruleID, "err", err)
		return err
	}
	s.log.Info("notification dispatched", "order_id", c.OrderID, "rule_id", ruleID)
	return nil
}

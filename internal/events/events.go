// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package events publishes ad moderation events. The Kafka publisher
// writes one JSON message per status change, keyed by ad ID so every
// event of an ad lands on the same partition in order.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"bizdir/internal/models"
)

// AdStatusChanged is emitted after a moderation decision is stored.
type AdStatusChanged struct {
	AdID            uuid.UUID       `json:"ad_id"`
	BusinessID      *uuid.UUID      `json:"business_id,omitempty"`
	Status          models.AdStatus `json:"status"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	At              time.Time       `json:"at"`
}

// NewAdStatusChanged builds the event for a stored ad. BusinessID is only
// set for ads that target a business.
func NewAdStatusChanged(ad *models.Ad, at time.Time) AdStatusChanged {
	ev := AdStatusChanged{
		AdID:            ad.ID,
		Status:          ad.Status,
		RejectionReason: ad.RejectionReason,
		At:              at.UTC(),
	}
	if ad.TargetType == models.TargetBusiness {
		ev.BusinessID = ad.TargetID
	}
	return ev
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends ad events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

// AdStatusChanged publishes the moderation event for ad.
func (k *KafkaPublisher) AdStatusChanged(ctx context.Context, ad *models.Ad) error {
	ev := NewAdStatusChanged(ad, k.now())
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ad event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ad.ID.String()),
		Value: msg,
		Time:  ev.At,
	})
	if err != nil {
		return fmt.Errorf("publish ad event: %w", err)
	}
	slog.Debug("ad event published", "ad_id", ad.ID, "status", ad.Status)
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// LogPublisher is used when no broker is configured. It only logs.
type LogPublisher struct{}

// AdStatusChanged logs the event.
func (LogPublisher) AdStatusChanged(_ context.Context, ad *models.Ad) error {
	slog.Info("ad status changed", "ad_id", ad.ID, "status", ad.Status)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error { return nil }

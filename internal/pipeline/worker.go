package pipeline

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// StreamQueue enqueues feedback ids onto a Redis stream for the worker pool.
type StreamQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *StreamQueue) Enqueue(ctx context.Context, feedbackID string) error {
	stream := q.Stream
	if stream == "" {
		stream = "feedback:stream"
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"feedback_id": feedbackID},
	}).Err()
}

// Processor is the worker-facing slice of the orchestrator.
type Processor interface {
	Process(ctx context.Context, feedbackID string) error
}

// WorkerPool consumes queued feedback ids from a Redis stream via a consumer
// group and runs the enrichment pipeline for each. Acks happen after Process
// returns, so a crashed worker leaves its message pending for redelivery.
type WorkerPool struct {
	Redis      *redis.Client
	Pipeline   Processor
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *WorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Pipeline == nil {
		return errors.New("WorkerPool missing dependency: Redis/Pipeline must be set")
	}
	if p.Stream == "" {
		p.Stream = "feedback:stream"
	}
	if p.Group == "" {
		p.Group = "feedback-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *WorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *WorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	v, ok := msg.Values["feedback_id"]
	if !ok || v == nil {
		return
	}
	feedbackID, _ := v.(string)
	if feedbackID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"feedback_id": feedbackID,
	})

	if err := p.Pipeline.Process(ctx, feedbackID); err != nil {
		log.WithError(err).Error("feedback processing failed")
		return
	}
}

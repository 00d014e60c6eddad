package main

import (
	"context"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
)

type stubPubSub struct{}

func (s *stubPubSub) Ping(context.Context) error            { return nil }
func (s *stubPubSub) OrdersPublisher() *gcppubsub.Publisher { return nil }

type stubOutboxRepo struct{}

func (s *stubOutboxRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) { return nil, nil }
func (s *stubOutboxRepo) MarkPublished(id uuid.UUID) error                         { return nil }
func (s *stubOutboxRepo) MarkFailed(id uuid.UUID, err error) error                 { return nil }

func publisherTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func TestNewServiceValidatesParams(t *testing.T) {
	cfg := &config.Config{}
	logg := publisherTestLogger()
	pubsub := &stubPubSub{}
	repo := &stubOutboxRepo{}

	cases := []struct {
		name   string
		params ServiceParams
	}{
		{"missing config", ServiceParams{Logger: logg, PubSub: pubsub, Repository: repo}},
		{"missing logger", ServiceParams{Config: cfg, PubSub: pubsub, Repository: repo}},
		{"missing pubsub", ServiceParams{Config: cfg, Logger: logg, Repository: repo}},
		{"missing repository", ServiceParams{Config: cfg, Logger: logg, PubSub: pubsub}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewService(tc.params); err == nil {
				t.Fatal("expected constructor error")
			}
		})
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     publisherTestLogger(),
		PubSub:     &stubPubSub{},
		Repository: &stubOutboxRepo{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if svc.batchSize != defaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", defaultBatchSize, svc.batchSize)
	}
	if svc.pollInterval != time.Duration(defaultPollMs)*time.Millisecond {
		t.Fatalf("expected default poll interval, got %s", svc.pollInterval)
	}
}

func TestNewServiceHonorsConfiguredValues(t *testing.T) {
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 200
	cfg.Outbox.PollIntervalMS = 1000

	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     publisherTestLogger(),
		PubSub:     &stubPubSub{},
		Repository: &stubOutboxRepo{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if svc.batchSize != 200 {
		t.Fatalf("expected batch size 200, got %d", svc.batchSize)
	}
	if svc.pollInterval != time.Second {
		t.Fatalf("expected 1s poll interval, got %s", svc.pollInterval)
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	base := 500 * time.Millisecond
	max := 10 * time.Second

	backoff := nextBackoff(base, base, max)
	if backoff != time.Second {
		t.Fatalf("expected 1s, got %s", backoff)
	}
	backoff = nextBackoff(backoff, base, max)
	if backoff != 2*time.Second {
		t.Fatalf("expected 2s, got %s", backoff)
	}

	for i := 0; i < 10; i++ {
		backoff = nextBackoff(backoff, base, max)
	}
	if backoff != max {
		t.Fatalf("expected backoff capped at %s, got %s", max, backoff)
	}

	// Non-positive current restarts from the base interval.
	if got := nextBackoff(0, base, max); got != time.Second {
		t.Fatalf("expected restart from base, got %s", got)
	}
}

func TestWithJitterBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		jittered := withJitter(base)
		if jittered < base || jittered >= base+jitterWindow {
			t.Fatalf("jittered duration %s outside [%s, %s)", jittered, base, base+jitterWindow)
		}
	}
	if withJitter(0) != 0 {
		t.Fatal("expected zero duration to pass through")
	}
	if withJitter(-time.Second) != 0 {
		t.Fatal("expected negative duration clamped to zero")
	}
}

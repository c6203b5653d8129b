package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TimerListener listens for Redis keyspace notifications on expired
// movement arrival keys and triggers a combat pass the moment an attack
// ripens. Also runs a polling fallback to catch arrivals if keyspace
// notifications are unavailable.
type TimerListener struct {
	rdb          *redis.Client
	combatSvc    *CombatService
	pollInterval time.Duration
}

// NewTimerListener creates a TimerListener.
func NewTimerListener(rdb *redis.Client, combatSvc *CombatService, pollInterval time.Duration) *TimerListener {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &TimerListener{rdb: rdb, combatSvc: combatSvc, pollInterval: pollInterval}
}

// Start begins listening for expired key events and runs a polling fallback.
func (t *TimerListener) Start(ctx context.Context) {
	go t.listenKeyspace(ctx)
	t.pollRipeAttacks(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired arrival keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// pollRipeAttacks periodically runs a combat pass to catch any attacks
// whose arrival notification was missed.
func (t *TimerListener) pollRipeAttacks(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.pollInterval).Msg("Combat poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Combat poller stopped")
			return
		case <-ticker.C:
			if err := t.combatSvc.ProcessCombatTick(ctx); err != nil {
				log.Error().Err(err).Msg("Combat tick failed from poller")
			}
		}
	}
}

// handleExpiry processes an expired key. Only acts on movement arrival keys.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "movement:") || !strings.HasSuffix(key, ":arrival") {
		return
	}

	log.Info().Str("key", key).Msg("Movement arrived, triggering combat pass")
	if err := t.combatSvc.ProcessCombatTick(ctx); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Combat tick failed after arrival")
	}
}

package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"chatrelay/api/internal/realtime"
	"chatrelay/api/internal/repository"
)

const activityStream = "chat:activity"

// Scheduler runs periodic reporting jobs: hourly hub occupancy snapshots
// pushed to a redis stream and a daily message-volume report from the store.
type Scheduler struct {
	cron     *cron.Cron
	hub      *realtime.Hub
	messages *repository.MessageRepository
	queue    *redis.Client
	log      zerolog.Logger
}

func NewScheduler(hub *realtime.Hub, messages *repository.MessageRepository, queue *redis.Client, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		hub:      hub,
		messages: messages,
		queue:    queue,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * * *", s.snapshotActivity); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.reportMessageVolume); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits briefly for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) snapshotActivity() {
	rooms, clients := s.hub.Stats()

	s.log.Info().
		Int("rooms", rooms).
		Int("clients", clients).
		Msg("hub activity snapshot")

	if s.queue == nil {
		return
	}
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: activityStream,
		Values: map[string]any{
			"type":    "occupancy",
			"rooms":   rooms,
			"clients": clients,
			"at":      time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		s.log.Error().Err(err).Msg("activity snapshot enqueue failed")
	}
}

func (s *Scheduler) reportMessageVolume() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := s.messages.CountByRoom(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("message volume report failed")
		return
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	s.log.Info().
		Int("rooms", len(counts)).
		Int64("messages", total).
		Msg("daily message volume")
}

// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/cache"
)

// Store persists batches of action records.
type Store interface {
	SaveBatch(ctx context.Context, recs []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, code string) error
}

// Options tune batching and abandonment.
type Options struct {
	Queue         string
	BatchSize     int
	FlushDelay    time.Duration
	PopTimeout    time.Duration
	Inactivity    time.Duration // matches silent this long are marked abandoned
	CheckInterval time.Duration
}

// DefaultOptions mirrors the values used in production.
func DefaultOptions() Options {
	return Options{
		Queue:         cache.DefaultQueueName,
		BatchSize:     20,
		FlushDelay:    500 * time.Millisecond,
		PopTimeout:    3 * time.Second,
		Inactivity:    10 * time.Minute,
		CheckInterval: time.Minute,
	}
}

// Service pops action records from a Redis queue and persists them in
// batches.
type Service struct {
	rdb    redis.Cmdable
	store  Store
	opts   Options
	logger *logrus.Logger

	lastActivity sync.Map // match code -> time.Time

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

// New constructs a Service. Zero option fields fall back to DefaultOptions.
func New(rdb redis.Cmdable, store Store, opts Options, logger *logrus.Logger) *Service {
	def := DefaultOptions()
	if opts.Queue == "" {
		opts.Queue = def.Queue
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = def.FlushDelay
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = def.PopTimeout
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = def.Inactivity
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = def.CheckInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:    rdb,
		store:  store,
		opts:   opts,
		logger: logger,
		batch:  make([]cache.ActionRecord, 0, opts.BatchSize),
	}
}

// Run reads the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	go s.inactivityLoop(ctx)

	s.logger.WithField("queue", s.opts.Queue).Info("historian started")
	s.readLoop(ctx)

	// The run context is gone; give the final flush its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		default:
			res, err := s.rdb.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.logger.WithError(err).Error("BLPop failed")
					time.Sleep(s.opts.FlushDelay)
				}
				continue
			}
			// res[0] is the queue name and res[1] the payload.
			if len(res) < 2 {
				continue
			}
			s.handle(ctx, res[1])
		}
	}
}

func (s *Service) handle(ctx context.Context, payload string) {
	var rec cache.ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.WithError(err).Warn("invalid action record")
		return
	}
	if rec.ActionType == cache.TypeMatchDisposed {
		s.lastActivity.Delete(rec.Match)
	} else {
		s.lastActivity.Store(rec.Match, time.Now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one transaction. A failed batch is
// logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := make([]cache.ActionRecord, len(s.batch))
	copy(batch, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.SaveBatch(ctx, batch); err != nil {
		s.logger.WithError(err).Errorf("failed to flush %d action(s)", len(batch))
		return
	}
	s.logger.Debugf("flushed %d action(s)", len(batch))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.markAbandoned(ctx, now)
		}
	}
}

func (s *Service) markAbandoned(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val any) bool {
		code, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		entry := s.logger.WithField("match", code)
		if err := s.store.MarkAbandoned(ctx, code); err != nil {
			entry.WithError(err).Error("failed to mark match abandoned")
			return true
		}
		s.lastActivity.Delete(code)
		entry.Info("marked abandoned after inactivity")
		return true
	})
}

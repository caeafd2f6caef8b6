// internal/janitor/janitor.go
package janitor

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/codenames/internal/game"
)

// Registry lists the active matches.
type Registry interface {
	Matches() []*game.Match
}

// Janitor periodically disposes matches nobody has touched for longer than
// the configured timeout. It never changes the state of a match.
type Janitor struct {
	games   Registry
	dispose func(code string)
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	sched gocron.Scheduler
}

// New returns a janitor that hands idle match codes to dispose.
func New(games Registry, dispose func(code string), timeout time.Duration, logger *logrus.Logger) *Janitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Janitor{
		games:   games,
		dispose: dispose,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep disposes every idle match once and returns how many it removed.
func (j *Janitor) Sweep() int {
	if j.timeout <= 0 {
		return 0
	}
	now := j.now()

	var idle []string
	for _, m := range j.games.Matches() {
		m.Mu.Lock()
		last := m.LastActive
		m.Mu.Unlock()
		if now.Sub(last) > j.timeout {
			idle = append(idle, m.ID)
		}
	}

	// dispose takes the store lock, so no match lock may be held here.
	for _, code := range idle {
		j.logger.WithField("match", code).Infof("idle for more than %s, disposing", j.timeout)
		j.dispose(code)
	}
	return len(idle)
}

// Start runs Sweep every interval until Stop.
func (j *Janitor) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { j.Sweep() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}
	sched.Start()
	j.sched = sched
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep.
func (j *Janitor) Stop() error {
	if j.sched == nil {
		return nil
	}
	return j.sched.Shutdown()
}

package services

import (
	"sync"
	"time"

	"tournament-registration-system/models"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// StartStatusScheduler wakes every minute and publishes change events for
// tournaments whose derived status flipped since the last tick. Status is
// always re-derived at read time; the job only exists so watchers get
// notified when a boundary crosses without any row being written.
func (s *TournamentService) StartStatusScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	var mu sync.Mutex
	lastRun := time.Now()
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			mu.Lock()
			defer mu.Unlock()
			lastRun = s.publishStatusRollovers(lastRun, time.Now())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
}

// publishStatusRollovers emits a tournaments change event for every row whose
// ±1h status boundary crossed in (lastRun, now]. Returns the new watermark;
// on a query error the old one comes back so the window is retried next tick.
func (s *TournamentService) publishStatusRollovers(lastRun, now time.Time) time.Time {
	var tournaments []models.Tournament
	// a status flips when start_time crosses now+1h (upcoming→ongoing)
	// or now-1h (ongoing→completed)
	err := s.DB.Where(
		"(start_time > ? AND start_time <= ?) OR (start_time > ? AND start_time <= ?)",
		lastRun.Add(time.Hour), now.Add(time.Hour),
		lastRun.Add(-time.Hour), now.Add(-time.Hour),
	).Find(&tournaments).Error
	if err != nil {
		log.Printf("[StatusScheduler] DB error: %v", err)
		return lastRun
	}

	for _, t := range tournaments {
		t.ApplyDerivedStatus(now)
		log.Printf("[StatusScheduler] %s is now %s", t.Title, t.Status)
		s.Feed.Publish(ChangeEvent{Table: TableTournaments, Action: ActionUpdate, RowID: t.ID})
	}
	return now
}

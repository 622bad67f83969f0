package services

import (
	"context"
	"testing"
	"time"

	"tournament-registration-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupSchedulerDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("scheduler_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tournament{}))
	return db
}

func TestPublishStatusRollovers(t *testing.T) {
	db := setupSchedulerDB(t)
	feed := NewChangefeed()
	svc := NewTournamentService(db, feed)

	now := time.Now().Truncate(time.Second)
	lastRun := now.Add(-2 * time.Minute)

	seed := func(id string, startTime time.Time) {
		require.NoError(t, db.Create(&models.Tournament{
			ID:        id,
			Slug:      id,
			Title:     id,
			StartTime: startTime,
			Status:    models.StatusUpcoming,
		}).Error)
	}
	// crossed now+1h since the last tick: upcoming → ongoing
	seed("turning-ongoing", now.Add(59*time.Minute))
	// crossed now-1h since the last tick: ongoing → completed
	seed("turning-completed", now.Add(-61*time.Minute))
	// no boundary crossed
	seed("still-upcoming", now.Add(3*time.Hour))

	sub := feed.Subscribe(TableTournaments, "")
	defer sub.Close()

	next := svc.publishStatusRollovers(lastRun, now)
	assert.Equal(t, now, next, "watermark advances on success")

	got := map[string]bool{}
	for len(sub.C) > 0 {
		ev := <-sub.C
		assert.Equal(t, ActionUpdate, ev.Action)
		got[ev.RowID] = true
	}
	assert.Equal(t, map[string]bool{"turning-ongoing": true, "turning-completed": true}, got)

	// nothing left to report for the same window
	assert.Equal(t, now, svc.publishStatusRollovers(now, now))
	assert.Empty(t, sub.C)
}

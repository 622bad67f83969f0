package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RealtimeService exposes the raw change stream for clients that run
// their own re-fetch logic instead of using the snapshot endpoints.
type RealtimeService struct {
	Feed *Changefeed
}

func NewRealtimeService(feed *Changefeed) *RealtimeService {
	return &RealtimeService{Feed: feed}
}

var watchableTables = map[string]bool{
	TableUsers:        true,
	TableTournaments:  true,
	TableRequests:     true,
	TableParticipants: true,
	TablePayments:     true,
	TableChatMessages: true,
	TableRooms:        true,
	TableSettings:     true,
}

// StreamChanges emits one "change" SSE frame per event on the given
// table, optionally narrowed by ?tournament_id=.
func (s *RealtimeService) StreamChanges(c *fiber.Ctx) error {
	table := c.Params("table")
	if !watchableTables[table] {
		return c.Status(404).JSON(fiber.Map{"error": "unknown table"})
	}
	tournamentID := c.Query("tournament_id")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := s.Feed.Subscribe(table, tournamentID)
	ctx := c.Context()

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		fmt.Fprint(w, ":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}
			case <-keepalive.C:
				fmt.Fprint(w, ":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

// services/resync.go
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// FetchFunc re-runs the full query backing a watched view.
type FetchFunc func() (interface{}, error)

// RunResync drives the re-fetch-on-notify loop for one watcher: emit a full
// snapshot immediately, then on EVERY change event discard the event payload,
// drain any burst, re-run the same full query and emit the fresh snapshot.
// A dropped or reordered event self-heals on the next one because the
// snapshot never depends on event contents.
//
// Returns when ctx is cancelled, the subscription is closed, or emit fails
// (client gone). The initial fetch error is returned; later fetch errors are
// logged and the loop keeps going.
func RunResync(ctx context.Context, sub *Subscription, fetch FetchFunc, emit func(interface{}) error) error {
	snapshot, err := fetch()
	if err != nil {
		return err
	}
	if err := emit(snapshot); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.C:
			if !ok {
				return nil
			}
			sub.Drain()
			snapshot, err := fetch()
			if err != nil {
				log.Printf("[Resync] re-fetch failed for %s: %v", sub.Table, err)
				continue
			}
			if err := emit(snapshot); err != nil {
				return err
			}
		}
	}
}

// streamResync serves RunResync over SSE: each snapshot goes out as one
// `event: <event>` frame with the JSON-encoded result as data.
func streamResync(c *fiber.Ctx, feed *Changefeed, table, tournamentID, event string, fetch FetchFunc) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	sub := feed.Subscribe(table, tournamentID)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		emit := func(snapshot interface{}) error {
			payload, err := json.Marshal(snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
			return w.Flush()
		}

		if err := RunResync(c.Context(), sub, fetch, emit); err != nil {
			log.Printf("[Resync] stream for %s ended: %v", table, err)
		}
	})

	return nil
}

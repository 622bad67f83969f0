// services/changefeed.go
package services

import (
	"sync"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Table names used for change events and subscriptions.
const (
	TableUsers        = "users"
	TableTournaments  = "tournaments"
	TableRequests     = "tournament_requests"
	TableParticipants = "tournament_participants"
	TablePayments     = "payment_requests"
	TableChatMessages = "chat_messages"
	TableRooms        = "tournament_rooms"
	TableSettings     = "payment_settings"
)

// ChangeEvent announces that a row in Table changed. Consumers treat it as
// a dirty-bit and re-run their full query — the payload carries no row data
// to merge.
type ChangeEvent struct {
	Table        string `json:"table"`
	Action       Action `json:"action"`
	TournamentID string `json:"tournament_id,omitempty"`
	RowID        string `json:"row_id,omitempty"`
}

// Subscription receives events for one table, optionally narrowed to a
// single tournament. Events are dropped when C's buffer is full; that is
// safe because every consumer re-fetches instead of merging payloads.
type Subscription struct {
	Table        string
	TournamentID string
	C            chan ChangeEvent

	feed *Changefeed
}

// Close tears the subscription down and closes C.
func (s *Subscription) Close() {
	s.feed.Unsubscribe(s)
}

// Drain discards any events already buffered on C, coalescing a burst
// into a single re-fetch.
func (s *Subscription) Drain() {
	for {
		select {
		case _, ok := <-s.C:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Changefeed is the in-process change-notification channel. Services publish
// an event after every successful insert/update/delete; watchers subscribe
// per table (optionally per tournament) and re-fetch on every event.
type Changefeed struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewChangefeed() *Changefeed {
	return &Changefeed{subs: make(map[*Subscription]struct{})}
}

const subscriptionBuffer = 16

// Subscribe registers interest in table. An empty tournamentID matches
// every event on the table.
func (f *Changefeed) Subscribe(table, tournamentID string) *Subscription {
	sub := &Subscription{
		Table:        table,
		TournamentID: tournamentID,
		C:            make(chan ChangeEvent, subscriptionBuffer),
		feed:         f,
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *Changefeed) Unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.C)
}

// Publish delivers e to every matching subscription without blocking:
// a subscriber whose buffer is full simply misses the event.
func (f *Changefeed) Publish(e ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		if sub.Table != e.Table {
			continue
		}
		if sub.TournamentID != "" && sub.TournamentID != e.TournamentID {
			continue
		}
		select {
		case sub.C <- e:
		default:
		}
	}
}

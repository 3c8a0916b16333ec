package services

import (
	"sync"
	"time"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// DefaultPairingCapacity is how many unmatched messages are kept per kind.
const DefaultPairingCapacity = 5

// Observation is a classified, day-tokenized message offered to the buffer.
type Observation struct {
	Event  domain.Event
	Day    int
	HasDay bool
	Proof  bool
	// Standalone lets a proof-only message resolve on its own (without a day
	// token) when no buffered day declaration matches. Set for the guild's
	// streak channel.
	Standalone bool
}

// Resolution is a qualifying event ready for the streak engine.
type Resolution struct {
	// Event is the message that completed the pair; replies go to it.
	Event  domain.Event
	Day    int
	HasDay bool
	// PairedWith is the earlier message's ID, empty when not paired.
	PairedWith string
}

type pendingKey struct{ userID, channelID string }

type pending struct {
	days   []Observation
	proofs []Observation
}

// PairingBuffer reconciles day declarations and proof-of-work posted as
// separate messages by the same user in the same channel. Each (user,
// channel) keeps two FIFOs bounded by Capacity; the oldest entry is evicted
// first. When TTL is positive, buffered entries older than TTL (measured on
// message timestamps, so replays behave like live traffic) are ignored.
//
// A PairingBuffer is safe for concurrent use. Instances are independent: the
// live pipeline owns one, each backfill run creates its own.
type PairingBuffer struct {
	Capacity int
	TTL      time.Duration

	mu      sync.Mutex
	entries map[pendingKey]*pending
}

// NewPairingBuffer returns an empty buffer.
func NewPairingBuffer(capacity int, ttl time.Duration) *PairingBuffer {
	if capacity <= 0 {
		capacity = DefaultPairingCapacity
	}
	return &PairingBuffer{Capacity: capacity, TTL: ttl, entries: make(map[pendingKey]*pending)}
}

// Observe feeds one message through the buffer. It returns ok true when the
// message resolves (alone or paired); otherwise the message was buffered or,
// carrying neither signal, ignored.
func (b *PairingBuffer) Observe(o Observation) (Resolution, bool) {
	if !o.HasDay && !o.Proof {
		return Resolution{}, false
	}
	key := pendingKey{o.Event.AuthorID, o.Event.ChannelID}

	b.mu.Lock()
	defer b.mu.Unlock()

	if o.HasDay && o.Proof {
		delete(b.entries, key)
		return Resolution{Event: o.Event, Day: o.Day, HasDay: true}, true
	}

	p := b.entries[key]
	if p == nil {
		p = &pending{}
		b.entries[key] = p
	}

	if o.HasDay {
		if proof, ok := b.latest(p.proofs, o.Event.CreatedAt); ok {
			delete(b.entries, key)
			return Resolution{Event: o.Event, Day: o.Day, HasDay: true, PairedWith: proof.Event.MessageID}, true
		}
		p.days = b.push(p.days, o)
		return Resolution{}, false
	}

	if day, ok := b.latest(p.days, o.Event.CreatedAt); ok {
		delete(b.entries, key)
		return Resolution{Event: o.Event, Day: day.Day, HasDay: true, PairedWith: day.Event.MessageID}, true
	}
	if o.Standalone {
		delete(b.entries, key)
		return Resolution{Event: o.Event}, true
	}
	p.proofs = b.push(p.proofs, o)
	return Resolution{}, false
}

// HasPendingDay reports whether a day declaration is waiting for proof.
func (b *PairingBuffer) HasPendingDay(userID, channelID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.entries[pendingKey{userID, channelID}]
	return p != nil && len(p.days) > 0
}

// Len returns the number of buffered messages across all keys.
func (b *PairingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.entries {
		n += len(p.days) + len(p.proofs)
	}
	return n
}

func (b *PairingBuffer) push(q []Observation, o Observation) []Observation {
	q = append(q, o)
	if len(q) > b.Capacity {
		q = q[len(q)-b.Capacity:]
	}
	return q
}

// latest returns the most recent entry still within TTL of now.
func (b *PairingBuffer) latest(q []Observation, now time.Time) (Observation, bool) {
	for i := len(q) - 1; i >= 0; i-- {
		if b.TTL > 0 && now.Sub(q[i].Event.CreatedAt) > b.TTL {
			// Older entries are older still.
			break
		}
		return q[i], true
	}
	return Observation{}, false
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wellcome-app/wizard/clock"
	"github.com/wellcome-app/wizard/types"
)

var ErrCodecMismatch = errors.New("wizard: event codec does not match registry")

// Listing is how a submitted event shows up for guests browsing the feed.
type Listing struct {
	ID                   string
	Title                string
	EventType            string
	Cuisines             []string
	Address              string
	Date                 time.Time
	RegistrationDeadline time.Time
	PriceCents           int64
	MaxGuests            int
	VeganOptions         bool
	Subject              string
	Seq                  uint64
}

// OpenForRegistration reports whether guests can still sign up today.
func (l Listing) OpenForRegistration(c clock.Clock) bool {
	return !clock.Today(c).After(l.RegistrationDeadline)
}

// Feed is a projection of the submitted events. It implements Evolver so it
// can be built with EventStore.Evolve and kept current with Refresh.
type Feed struct {
	types *types.Registry

	mu       sync.RWMutex
	listings map[string]Listing
	lastSeq  uint64
}

// NewFeed creates an empty feed that decodes records with reg.
func NewFeed(reg *types.Registry) *Feed {
	return &Feed{
		types:    reg,
		listings: make(map[string]Listing),
	}
}

func (f *Feed) Evolve(event *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if event.Seq > f.lastSeq {
		f.lastSeq = event.Seq
	}

	// Other record types may share the stream.
	if event.Type != EventCreatedType {
		return nil
	}

	if name := f.types.Codec().Name(); event.Codec != "" && event.Codec != name {
		return fmt.Errorf("%w: %s is %s, want %s", ErrCodecMismatch, event.ID, event.Codec, name)
	}

	v, err := f.types.UnmarshalType(event.Data, event.Type)
	if err != nil {
		return err
	}

	rec := v.(*EventRecord)
	f.listings[rec.ID] = Listing{
		ID:                   rec.ID,
		Title:                rec.Title,
		EventType:            rec.EventType,
		Cuisines:             rec.CuisineTypes,
		Address:              rec.Address,
		Date:                 rec.Date,
		RegistrationDeadline: rec.RegistrationDeadline,
		PriceCents:           rec.PriceCents,
		MaxGuests:            rec.MaxGuests,
		VeganOptions:         rec.VeganOptions,
		Subject:              event.Subject,
		Seq:                  event.Seq,
	}
	return nil
}

// Refresh applies the events on subject appended since the last refresh.
func (f *Feed) Refresh(ctx context.Context, es EventStore, subject string) error {
	f.mu.RLock()
	after := f.lastSeq
	f.mu.RUnlock()

	var opts []LoadOption
	if after > 0 {
		opts = append(opts, AfterSequence(after))
	}

	_, err := es.Evolve(ctx, subject, f, opts...)
	return err
}

// Len returns the number of listings, past ones included.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listings)
}

// Listings returns every listing in stream order.
func (f *Feed) Listings() []Listing {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Listing, 0, len(f.listings))
	for _, l := range f.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Upcoming returns the listings taking place today or later, soonest first.
func (f *Feed) Upcoming(c clock.Clock) []Listing {
	today := clock.Today(c)

	var out []Listing
	for _, l := range f.Listings() {
		if l.Date.Before(today) {
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Near returns the upcoming listings whose address contains term, ignoring case.
func (f *Feed) Near(c clock.Clock, term string) []Listing {
	term = strings.ToLower(strings.TrimSpace(term))

	var out []Listing
	for _, l := range f.Upcoming(c) {
		if strings.Contains(strings.ToLower(l.Address), term) {
			out = append(out, l)
		}
	}
	return out
}

package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wellcome-app/wizard/testutil"
)

func newTestEventStore(t *testing.T) EventStore {
	t.Helper()

	srv := testutil.NewNatsServer(-1)
	t.Cleanup(func() { testutil.ShutdownNatsServer(srv) })

	nc := testutil.Connect(t, srv)

	m, err := NewEventStoreManager(nc)
	if err != nil {
		t.Fatal(err)
	}

	es, err := m.CreateEventStore(&EventStoreConfig{
		Name:    "events",
		Storage: nats.MemoryStorage,
	})
	if err != nil {
		t.Fatal(err)
	}
	return es
}

func testSubmission(id string) *Submission {
	return &Submission{
		ID:          id,
		Session:     completeSession(),
		SubmittedAt: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewRecord(t *testing.T) {
	is := testutil.NewIs(t)

	sub := testSubmission("sub-1")
	sub.Session.VeganOptions = true
	sub.Session.Location.Facilities = []string{"Ar condicionado"}

	rec, err := NewRecord(sub)
	is.NoErr(err)
	is.Equal(rec, &EventRecord{
		ID:                   "sub-1",
		EventType:            "Almoço",
		CuisineTypes:         []string{"Italiana"},
		Dishes:               []Dish{{ID: "1", Name: "Lasanha"}},
		Address:              "Rua Augusta, 100",
		Facilities:           []string{"Ar condicionado"},
		PriceCents:           8990,
		MaxGuests:            8,
		Date:                 *day(2025, 12, 20),
		RegistrationDeadline: *day(2025, 12, 18),
		VeganOptions:         true,
		SubmittedAt:          sub.SubmittedAt,
	})

	// The record does not share memory with the session.
	rec.CuisineTypes[0] = "Alterada"
	is.Equal(sub.Session.CuisineTypes, []string{"Italiana"})

	sub.Session.Details.MaxGuests = "muitos"
	_, err = NewRecord(sub)
	is.Err(err, errMaxGuests)

	sub = testSubmission("sub-2")
	sub.Session.Details.Date = nil
	_, err = NewRecord(sub)
	is.Err(err, nil)
}

func TestEventStoreSubmitter(t *testing.T) {
	for _, name := range []string{"json", "msgpack", "protobuf"} {
		t.Run(name, func(t *testing.T) {
			is := testutil.NewIs(t)
			es := newTestEventStore(t)

			reg, err := NewRecordTypes(name)
			is.NoErr(err)

			s := NewEventStoreSubmitter(es, reg, "events")
			is.Equal(s.Subject("sub-1"), "events.sub-1")

			ctx := context.Background()
			sub := testSubmission("sub-1")

			eventID, err := s.Submit(ctx, sub)
			is.NoErr(err)
			is.Equal(eventID, "sub-1")

			events, seq, err := es.Load(ctx, "events.sub-1")
			is.NoErr(err)
			is.Equal(seq, uint64(1))
			is.Equal(len(events), 1)
			is.Equal(events[0].ID, "sub-1")
			is.Equal(events[0].Type, EventCreatedType)
			is.Equal(events[0].Codec, name)
			is.True(events[0].Time.Equal(sub.SubmittedAt))

			v, err := reg.UnmarshalType(events[0].Data, events[0].Type)
			is.NoErr(err)
			want, _ := NewRecord(sub)
			is.Equal(v.(*EventRecord), want)
		})
	}
}

func TestEventStoreSubmitterRetry(t *testing.T) {
	is := testutil.NewIs(t)
	es := newTestEventStore(t)

	reg, err := NewRecordTypes("json")
	is.NoErr(err)
	s := NewEventStoreSubmitter(es, reg, "events")

	ctx := context.Background()
	sub := testSubmission("sub-1")

	_, err = s.Submit(ctx, sub)
	is.NoErr(err)

	// A retry whose first attempt was stored succeeds without a second event.
	eventID, err := s.Submit(ctx, sub)
	is.NoErr(err)
	is.Equal(eventID, "sub-1")

	events, _, err := es.Load(ctx, "events.sub-1")
	is.NoErr(err)
	is.Equal(len(events), 1)
}

func TestEventStoreSubmitterConflict(t *testing.T) {
	is := testutil.NewIs(t)
	es := newTestEventStore(t)

	reg, err := NewRecordTypes("json")
	is.NoErr(err)
	s := NewEventStoreSubmitter(es, reg, "events")

	ctx := context.Background()

	// Another event already owns the subject.
	_, err = es.Append(ctx, "events.sub-1", &Event{
		ID:   "other",
		Type: EventCreatedType,
		Data: []byte(`{}`),
	})
	is.NoErr(err)

	_, err = s.Submit(ctx, testSubmission("sub-1"))
	is.Err(err, ErrSequenceConflict)
}

func TestStoreWithEventStoreSubmitter(t *testing.T) {
	is := testutil.NewIs(t)
	es := newTestEventStore(t)

	reg, err := NewRecordTypes("json")
	is.NoErr(err)

	store := newTestStore(t, NewEventStoreSubmitter(es, reg, "events"))
	f, err := NewFlow(store, ID(testutil.NewSeqGen("dish")))
	is.NoErr(err)

	for i := 0; i < 3; i++ {
		fillStep(t, f)
		is.NoErr(f.Next())
	}
	fillStep(t, f)

	eventID, err := f.Submit(context.Background())
	is.NoErr(err)
	is.Equal(eventID, "sub-1")

	events, _, err := es.Load(context.Background(), "events.sub-1")
	is.NoErr(err)
	is.Equal(len(events), 1)
}

func TestSubmissionError(t *testing.T) {
	is := testutil.NewIs(t)

	err := error(&SubmissionError{ID: "sub-1", Err: errBackend})
	is.Equal(err.Error(), "wizard: submission sub-1 failed: backend unavailable")
	is.True(errors.Is(err, errBackend))
}

func TestSimulatedSubmitter(t *testing.T) {
	is := testutil.NewIs(t)

	s := &SimulatedSubmitter{Delay: time.Millisecond}
	eventID, err := s.Submit(context.Background(), testSubmission("sub-1"))
	is.NoErr(err)
	is.Equal(eventID, "sub-1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = (&SimulatedSubmitter{Delay: time.Minute}).Submit(ctx, testSubmission("sub-2"))
	is.Err(err, context.DeadlineExceeded)
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wellcome-app/wizard/types"
)

// Submission is a finished session handed to a Submitter.
type Submission struct {
	// ID is stable across retries of the same session and may be used
	// for de-duplication.
	ID          string
	Session     Session
	SubmittedAt time.Time
}

// Submitter persists submitted sessions and returns the id of the created
// event. It owns schema mapping, authentication context and timeouts.
type Submitter interface {
	Submit(ctx context.Context, sub *Submission) (string, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, sub *Submission) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, sub *Submission) (string, error) {
	return f(ctx, sub)
}

// SubmissionError is returned when the submitter fails. The session is left
// unchanged and the submission can be retried.
type SubmissionError struct {
	ID  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("wizard: submission %s failed: %s", e.ID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// SimulatedSubmitter waits for Delay and then succeeds, using the submission
// id as the event id. It stands in for a real backend in demos.
type SimulatedSubmitter struct {
	Delay time.Duration
}

func (s *SimulatedSubmitter) Submit(ctx context.Context, sub *Submission) (string, error) {
	if s.Delay <= 0 {
		return sub.ID, ctx.Err()
	}

	t := time.NewTimer(s.Delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
		return sub.ID, nil
	}
}

// EventStoreSubmitter appends submissions as meal-event-created records to an
// event store, one subject per event.
type EventStoreSubmitter struct {
	store  EventStore
	types  *types.Registry
	prefix string
}

// NewEventStoreSubmitter appends to subjects "<prefix>.<submission id>".
// The registry must know the record types, see NewRecordTypes.
func NewEventStoreSubmitter(es EventStore, reg *types.Registry, prefix string) *EventStoreSubmitter {
	return &EventStoreSubmitter{
		store:  es,
		types:  reg,
		prefix: prefix,
	}
}

// Subject returns the subject the event with the given id is stored under.
func (s *EventStoreSubmitter) Subject(eventID string) string {
	return fmt.Sprintf("%s.%s", s.prefix, eventID)
}

func (s *EventStoreSubmitter) Submit(ctx context.Context, sub *Submission) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "EventStoreSubmitter.Submit")
	defer func() { endSpan(span, err) }()

	rec, err := NewRecord(sub)
	if err != nil {
		return "", err
	}

	t, data, err := s.types.Marshal(rec)
	if err != nil {
		return "", err
	}

	subject := s.Subject(sub.ID)
	_, err = s.store.Append(ctx, subject, &Event{
		ID:    sub.ID,
		Type:  t,
		Time:  sub.SubmittedAt,
		Codec: s.types.Codec().Name(),
		Data:  data,
	}, ExpectSequence(0))

	if errors.Is(err, ErrSequenceConflict) {
		// An earlier attempt may have been stored without its ack reaching us.
		events, _, lerr := s.store.Load(ctx, subject)
		if lerr == nil && len(events) > 0 && events[0].ID == sub.ID {
			span.AddEvent("already stored")
			return sub.ID, nil
		}
		return "", err
	}
	if err != nil {
		return "", err
	}

	return sub.ID, nil
}

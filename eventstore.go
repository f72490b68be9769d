package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wellcome-app/wizard/clock"
)

const (
	eventTypeHdr    = "Wellcome-Event-Type"
	eventTimeHdr    = "Wellcome-Event-Time"
	eventCodecHdr   = "Wellcome-Event-Codec"
	eventTimeFormat = time.RFC3339Nano
)

var (
	ErrSequenceConflict  = errors.New("wizard: sequence conflict")
	ErrEventIDRequired   = errors.New("wizard: event id required")
	ErrEventTypeRequired = errors.New("wizard: event type required")
)

// Event is an encoded record together with the metadata the stream keeps
// for it. ID doubles as the NATS message id, so appending the same event
// twice within the stream's duplicate window stores it once.
type Event struct {
	ID    string
	Type  string
	Time  time.Time // set from the store's clock when zero
	Codec string    // codec Data is encoded with
	Data  []byte

	// Set on load.
	Subject string
	Seq     uint64
}

func (e *Event) msg(subject string, at time.Time) *nats.Msg {
	m := nats.NewMsg(subject)
	m.Data = e.Data
	m.Header.Set(nats.MsgIdHdr, e.ID)
	m.Header.Set(eventTypeHdr, e.Type)
	m.Header.Set(eventTimeHdr, at.UTC().Format(eventTimeFormat))
	if e.Codec != "" {
		m.Header.Set(eventCodecHdr, e.Codec)
	}
	return m
}

func eventFromMsg(m *nats.Msg) (*Event, error) {
	md, err := m.Metadata()
	if err != nil {
		return nil, fmt.Errorf("event metadata: %w", err)
	}

	at, err := time.Parse(eventTimeFormat, m.Header.Get(eventTimeHdr))
	if err != nil {
		return nil, fmt.Errorf("event time at seq %d: %w", md.Sequence.Stream, err)
	}

	return &Event{
		ID:      m.Header.Get(nats.MsgIdHdr),
		Type:    m.Header.Get(eventTypeHdr),
		Time:    at,
		Codec:   m.Header.Get(eventCodecHdr),
		Data:    m.Data,
		Subject: m.Subject,
		Seq:     md.Sequence.Stream,
	}, nil
}

// Evolver folds events into a state.
type Evolver interface {
	Evolve(event *Event) error
}

// EventStore keeps events on a JetStream stream, addressed by subject.
// Subjects passed to Load and Evolve may contain wildcards.
type EventStore interface {
	// Load returns the events on subject in stream order along with the
	// sequence of the last one. For a literal subject that sequence is what
	// ExpectSequence takes for the next append.
	Load(ctx context.Context, subject string, opts ...LoadOption) ([]*Event, uint64, error)

	// Append stores event under subject and returns its stream sequence.
	Append(ctx context.Context, subject string, event *Event, opts ...AppendOption) (uint64, error)

	// Evolve loads the events for the subject and applies them to state in
	// order. It returns the sequence of the last event applied.
	Evolve(ctx context.Context, subject string, state Evolver, opts ...LoadOption) (uint64, error)
}

// AppendOption configures a single Append.
type AppendOption func(o *appendOptions)

type appendOptions struct {
	expectSeq *uint64
}

// ExpectSequence makes the append fail with ErrSequenceConflict unless the
// last event on the subject has the given sequence. Zero means the subject
// must be empty.
func ExpectSequence(seq uint64) AppendOption {
	return func(o *appendOptions) {
		o.expectSeq = &seq
	}
}

// LoadOption configures a single Load or Evolve.
type LoadOption func(o *loadOptions)

type loadOptions struct {
	afterSeq uint64
}

// AfterSequence only loads events with a sequence greater than seq. Use it
// when state has already been derived up to seq.
func AfterSequence(seq uint64) LoadOption {
	return func(o *loadOptions) {
		o.afterSeq = seq
	}
}

// Shapes of the JetStream direct get API, used to look up the last message
// on a subject.
type jsAPIError struct {
	Code        int    `json:"code"`
	ErrCode     uint16 `json:"err_code"`
	Description string `json:"description"`
}

type msgGetRequest struct {
	LastBySubject string `json:"last_by_subj"`
}

type msgGetResponse struct {
	Error   *jsAPIError `json:"error"`
	Message *struct {
		Sequence uint64 `json:"seq"`
	} `json:"message"`
}

// JetStream error code for "no message found".
const jsNoMessageFound = 10037

type eventStore struct {
	stream string
	nc     *nats.Conn
	js     nats.JetStreamContext
	clock  clock.Clock
	log    zerolog.Logger
}

// lastSeq returns the sequence of the latest event matching subject, zero
// when there is none. It marks where Load stops reading.
func (s *eventStore) lastSeq(ctx context.Context, subject string) (uint64, error) {
	seq, err := s.lastMsgSeq(ctx, subject)
	if errors.Is(err, nats.ErrMsgNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("last event on %s: %w", subject, err)
	}
	return seq, nil
}

// lastMsgSeq asks the stream for the last message stored on subject.
// The JetStreamContext of this nats.go release has no GetLastMsg, so the
// API request is sent directly.
func (s *eventStore) lastMsgSeq(ctx context.Context, subject string) (uint64, error) {
	req, err := json.Marshal(&msgGetRequest{LastBySubject: subject})
	if err != nil {
		return 0, err
	}

	msg, err := s.nc.RequestWithContext(ctx, "$JS.API.STREAM.MSG.GET."+s.stream, req)
	if err != nil {
		return 0, err
	}

	var rep msgGetResponse
	if err := json.Unmarshal(msg.Data, &rep); err != nil {
		return 0, err
	}

	if rep.Error != nil {
		if rep.Error.ErrCode == jsNoMessageFound {
			return 0, nats.ErrMsgNotFound
		}
		return 0, fmt.Errorf("%s (%d)", rep.Error.Description, rep.Error.Code)
	}
	if rep.Message == nil {
		return 0, nats.ErrMsgNotFound
	}
	return rep.Message.Sequence, nil
}

func (s *eventStore) Load(ctx context.Context, subject string, opts ...LoadOption) (_ []*Event, _ uint64, err error) {
	ctx, span := tracer.Start(ctx, "EventStore.Load", trace.WithAttributes(
		attribute.String("nats.stream", s.stream),
		attribute.String("nats.subject", subject),
	))
	defer func() { endSpan(span, err) }()

	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	last, err := s.lastSeq(ctx, subject)
	if err != nil {
		return nil, 0, err
	}

	// Nothing stored, or nothing new since afterSeq.
	if last == 0 || last <= o.afterSeq {
		return nil, max(last, o.afterSeq), nil
	}

	// An ephemeral ordered consumer is the cheapest way to replay a subject.
	start := nats.DeliverAll()
	if o.afterSeq > 0 {
		start = nats.StartSequence(o.afterSeq + 1)
	}

	sub, err := s.js.SubscribeSync(subject, nats.OrderedConsumer(), start)
	if err != nil {
		return nil, 0, err
	}
	defer sub.Unsubscribe()

	var events []*Event
	for seq := o.afterSeq; seq < last; {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			return nil, 0, err
		}

		event, err := eventFromMsg(msg)
		if err != nil {
			return nil, 0, err
		}

		events = append(events, event)
		seq = event.Seq
	}

	s.log.Debug().
		Str("subject", subject).
		Int("events", len(events)).
		Uint64("last_seq", last).
		Msg("events loaded")

	return events, last, nil
}

func (s *eventStore) Append(ctx context.Context, subject string, event *Event, opts ...AppendOption) (_ uint64, err error) {
	ctx, span := tracer.Start(ctx, "EventStore.Append", trace.WithAttributes(
		attribute.String("nats.stream", s.stream),
		attribute.String("nats.subject", subject),
		attribute.String("wizard.event_type", event.Type),
	))
	defer func() { endSpan(span, err) }()

	switch {
	case event.ID == "":
		return 0, ErrEventIDRequired
	case event.Type == "":
		return 0, ErrEventTypeRequired
	}

	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	pubOpts := []nats.PubOpt{nats.Context(ctx), nats.ExpectStream(s.stream)}
	if o.expectSeq != nil {
		pubOpts = append(pubOpts, nats.ExpectLastSequencePerSubject(*o.expectSeq))
	}

	at := event.Time
	if at.IsZero() {
		at = s.clock.Now()
	}

	ack, err := s.js.PublishMsg(event.msg(subject, at), pubOpts...)
	if err != nil {
		if strings.Contains(err.Error(), "wrong last sequence") {
			return 0, ErrSequenceConflict
		}
		return 0, err
	}

	s.log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID).
		Str("type", event.Type).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("event appended")

	return ack.Sequence, nil
}

func (s *eventStore) Evolve(ctx context.Context, subject string, state Evolver, opts ...LoadOption) (uint64, error) {
	events, seq, err := s.Load(ctx, subject, opts...)
	if err != nil {
		return 0, err
	}

	for _, e := range events {
		if err := state.Evolve(e); err != nil {
			return 0, fmt.Errorf("evolve %s seq %d: %w", e.Type, e.Seq, err)
		}
	}

	return seq, nil
}

// EventStoreManager creates and removes the streams backing event stores.
type EventStoreManager interface {
	EventStore(name string) EventStore
	CreateEventStore(config *EventStoreConfig) (EventStore, error)
	EnsureEventStore(config *EventStoreConfig) (EventStore, error)
	DeleteEventStore(name string) error
}

// EventStoreConfig describes the stream backing an event store. Streams are
// created with delete and purge denied since events are never removed.
type EventStoreConfig struct {
	Name        string
	Description string

	// Subjects default to the lower-cased name plus a single token
	// wildcard, e.g. "events.*", one subject per meal event.
	Subjects []string

	Storage  nats.StorageType
	Replicas int
}

func (c *EventStoreConfig) subjects() []string {
	if len(c.Subjects) > 0 {
		return c.Subjects
	}
	return []string{fmt.Sprintf("%s.*", strings.ToLower(c.Name))}
}

type eventStoreManager struct {
	nc   *nats.Conn
	js   nats.JetStreamContext
	opts options
}

// NewEventStoreManager initializes a manager on a NATS connection with
// JetStream enabled. The Clock and Logger options apply.
func NewEventStoreManager(nc *nats.Conn, opts ...Option) (EventStoreManager, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	return &eventStoreManager{
		nc:   nc,
		js:   js,
		opts: o,
	}, nil
}

func (m *eventStoreManager) EventStore(name string) EventStore {
	return &eventStore{
		stream: name,
		nc:     m.nc,
		js:     m.js,
		clock:  m.opts.clock,
		log:    m.opts.log.With().Str("component", "eventstore").Str("stream", name).Logger(),
	}
}

func (m *eventStoreManager) CreateEventStore(config *EventStoreConfig) (EventStore, error) {
	_, err := m.js.AddStream(&nats.StreamConfig{
		Name:        config.Name,
		Description: config.Description,
		Subjects:    config.subjects(),
		Storage:     config.Storage,
		Replicas:    config.Replicas,
		DenyDelete:  true,
		DenyPurge:   true,
	})
	if err != nil {
		return nil, err
	}

	return m.EventStore(config.Name), nil
}

// EnsureEventStore returns the existing event store with the configured name
// or creates it.
func (m *eventStoreManager) EnsureEventStore(config *EventStoreConfig) (EventStore, error) {
	_, err := m.js.StreamInfo(config.Name)
	if err == nil {
		return m.EventStore(config.Name), nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return nil, err
	}
	return m.CreateEventStore(config)
}

func (m *eventStoreManager) DeleteEventStore(name string) error {
	return m.js.DeleteStream(name)
}

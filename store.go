package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrDishNotFound         = errors.New("wizard: dish not found")
	ErrNotInCatalog         = errors.New("wizard: value not in catalog")
	ErrSubmissionInProgress = errors.New("wizard: submission in progress")
	ErrSessionFinalized     = errors.New("wizard: session already submitted")
	ErrSubmitterRequired    = errors.New("wizard: submitter required")
)

// Store holds the session of one pass through the wizard. Every mutation
// builds a new Session from a copy of the current one and swaps it in under
// the lock, so readers only ever observe complete sessions.
//
// Mutations are rejected while a submission is pending and after a
// successful submission, until Reset is called.
type Store struct {
	opts      options
	log       zerolog.Logger
	submitter Submitter

	mu  sync.RWMutex
	cur *Session
	rev uint64

	submitting   bool
	finalized    bool
	submissionID string
	eventID      string
}

// NewStore creates an empty session store that hands finished sessions to sub.
func NewStore(sub Submitter, opts ...Option) (*Store, error) {
	if sub == nil {
		return nil, ErrSubmitterRequired
	}

	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	return &Store{
		opts:      o,
		log:       o.log.With().Str("component", "wizard-store").Logger(),
		submitter: sub,
		cur:       sessionPtr(NewSession()),
	}, nil
}

// Data returns a copy of the current session.
func (s *Store) Data() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Revision is incremented by every accepted mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Finalized reports whether the session has been submitted successfully.
func (s *Store) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized
}

// EventID returns the id assigned by the submitter once finalized.
func (s *Store) EventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventID
}

func (s *Store) update(op string, fn func(next *Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return ErrSubmissionInProgress
	}
	if s.finalized {
		return ErrSessionFinalized
	}

	next := s.cur.Clone()
	if err := fn(&next); err != nil {
		s.log.Debug().Err(err).Str("op", op).Msg("mutation rejected")
		return err
	}

	s.cur = &next
	s.rev++
	s.log.Debug().Str("op", op).Uint64("revision", s.rev).Msg("session updated")
	return nil
}

// SetEventType selects the event type. The empty string clears it.
func (s *Store) SetEventType(t string) error {
	if t != "" && !s.opts.catalog.HasEventType(t) {
		return fmt.Errorf("%w: event type %q", ErrNotInCatalog, t)
	}
	return s.update("set-event-type", func(next *Session) error {
		next.EventType = t
		return nil
	})
}

// ToggleCuisineType adds the cuisine if absent and removes it otherwise.
func (s *Store) ToggleCuisineType(t string) error {
	if !s.opts.catalog.HasCuisine(t) {
		return fmt.Errorf("%w: cuisine %q", ErrNotInCatalog, t)
	}
	return s.update("toggle-cuisine-type", func(next *Session) error {
		next.CuisineTypes = toggle(next.CuisineTypes, t)
		return nil
	})
}

func (s *Store) SetServedInSequence(v bool) error {
	return s.update("set-served-in-sequence", func(next *Session) error {
		next.IsServedInSequence = v
		return nil
	})
}

// AddDish appends d to the menu. The caller is responsible for the
// uniqueness of d.ID.
func (s *Store) AddDish(d Dish) error {
	return s.update("add-dish", func(next *Session) error {
		next.Dishes = append(next.Dishes, d)
		return nil
	})
}

// UpdateDish merges p into the dish with the given id. The menu is left
// unchanged and ErrDishNotFound returned when no dish has that id.
func (s *Store) UpdateDish(id string, p DishPatch) error {
	return s.update("update-dish", func(next *Session) error {
		i := dishIndex(next.Dishes, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrDishNotFound, id)
		}
		next.Dishes[i] = p.apply(next.Dishes[i])
		return nil
	})
}

// RemoveDish removes the dish with the given id, keeping the order of the
// others. The menu is left unchanged and ErrDishNotFound returned when no
// dish has that id.
func (s *Store) RemoveDish(id string) error {
	return s.update("remove-dish", func(next *Session) error {
		i := dishIndex(next.Dishes, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrDishNotFound, id)
		}
		next.Dishes = append(next.Dishes[:i], next.Dishes[i+1:]...)
		return nil
	})
}

// UpdateLocation merges p into the location. Provided facilities and rules
// replace the current sets after duplicates are dropped; every label must
// be in the catalog.
func (s *Store) UpdateLocation(p LocationPatch) error {
	var facilities, rules []string
	if p.Facilities != nil {
		facilities = dedupe(p.Facilities)
		for _, f := range facilities {
			if !s.opts.catalog.HasFacility(f) {
				return fmt.Errorf("%w: facility %q", ErrNotInCatalog, f)
			}
		}
	}
	if p.Rules != nil {
		rules = dedupe(p.Rules)
		for _, r := range rules {
			if !s.opts.catalog.HasRule(r) {
				return fmt.Errorf("%w: rule %q", ErrNotInCatalog, r)
			}
		}
	}

	return s.update("update-location", func(next *Session) error {
		if p.Address != nil {
			next.Location.Address = *p.Address
		}
		if facilities != nil {
			next.Location.Facilities = facilities
		}
		if rules != nil {
			next.Location.Rules = rules
		}
		return nil
	})
}

// ToggleFacility adds the facility if absent and removes it otherwise.
func (s *Store) ToggleFacility(f string) error {
	if !s.opts.catalog.HasFacility(f) {
		return fmt.Errorf("%w: facility %q", ErrNotInCatalog, f)
	}
	return s.update("toggle-facility", func(next *Session) error {
		next.Location.Facilities = toggle(next.Location.Facilities, f)
		return nil
	})
}

// ToggleRule adds the rule if absent and removes it otherwise.
func (s *Store) ToggleRule(r string) error {
	if !s.opts.catalog.HasRule(r) {
		return fmt.Errorf("%w: rule %q", ErrNotInCatalog, r)
	}
	return s.update("toggle-rule", func(next *Session) error {
		next.Location.Rules = toggle(next.Location.Rules, r)
		return nil
	})
}

// UpdateDetails merges p into the event details.
func (s *Store) UpdateDetails(p DetailsPatch) error {
	return s.update("update-details", func(next *Session) error {
		next.Details = p.apply(next.Details)
		return nil
	})
}

func (s *Store) SetVeganOptions(v bool) error {
	return s.update("set-vegan-options", func(next *Session) error {
		next.VeganOptions = v
		return nil
	})
}

func (s *Store) SetSubstitutions(v bool) error {
	return s.update("set-substitutions", func(next *Session) error {
		next.Substitutions = v
		return nil
	})
}

func (s *Store) SetMenuAlterations(v bool) error {
	return s.update("set-menu-alterations", func(next *Session) error {
		next.MenuAlterations = v
		return nil
	})
}

// Submit hands a snapshot of the session to the submitter and returns the
// id of the created event. The submission id is generated on the first
// attempt and reused by retries. On failure the session is left exactly as
// it was and a *SubmissionError is returned.
func (s *Store) Submit(ctx context.Context) (eventID string, err error) {
	ctx, span := tracer.Start(ctx, "Store.Submit")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrSubmissionInProgress
	}
	if s.finalized {
		s.mu.Unlock()
		return "", ErrSessionFinalized
	}
	if s.submissionID == "" {
		s.submissionID = s.opts.id.New()
	}
	s.submitting = true
	sub := &Submission{
		ID:          s.submissionID,
		Session:     s.cur.Clone(),
		SubmittedAt: s.opts.clock.Now(),
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.String("wizard.submission_id", sub.ID))
	s.log.Info().Str("submission_id", sub.ID).Msg("submitting event")
	eventID, err = s.send(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if err != nil {
		s.log.Warn().Err(err).Str("submission_id", sub.ID).Msg("submit failed")
		return "", &SubmissionError{ID: sub.ID, Err: err}
	}

	s.finalized = true
	s.eventID = eventID
	s.log.Info().Str("submission_id", sub.ID).Str("event_id", eventID).Msg("event submitted")
	return eventID, nil
}

// send hands sub to the submitter. If the submitter panics the in-progress
// flag is cleared before the panic continues.
func (s *Store) send(ctx context.Context, sub *Submission) (string, error) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.submitting = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	return s.submitter.Submit(ctx, sub)
}

// Reset discards the session and starts over with an empty one.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return ErrSubmissionInProgress
	}

	s.cur = sessionPtr(NewSession())
	s.rev++
	s.finalized = false
	s.submissionID = ""
	s.eventID = ""
	s.log.Debug().Uint64("revision", s.rev).Msg("session reset")
	return nil
}

func sessionPtr(s Session) *Session {
	return &s
}

func dishIndex(dishes []Dish, id string) int {
	for i, d := range dishes {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func toggle(set []string, v string) []string {
	for i, x := range set {
		if x == v {
			out := make([]string, 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...)
		}
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set...)
	return append(out, v)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

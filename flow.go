package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var ErrInvalidTransition = errors.New("wizard: invalid transition")

// State is the position of a Flow.
type State int

const (
	StateEventType State = iota + 1
	StateMenu
	StateLocation
	StateDetails
	StateSubmitting
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateEventType:
		return "event-type"
	case StateMenu:
		return "menu"
	case StateLocation:
		return "location"
	case StateDetails:
		return "details"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Step returns the wizard step of s. ok is false outside the four steps.
func (s State) Step() (step Step, ok bool) {
	if s >= StateEventType && s <= StateDetails {
		return Step(s), true
	}
	return 0, false
}

// Flow walks a Store through the four steps. It owns step navigation and
// the checks that gate moving forward; the store never blocks a mutation
// for being incomplete.
type Flow struct {
	store *Store
	opts  options
	log   zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewFlow starts a flow at the first step.
func NewFlow(store *Store, opts ...Option) (*Flow, error) {
	if store == nil {
		return nil, errors.New("wizard: nil store")
	}

	o := defaultOptions()
	if err := o.apply(opts); err != nil {
		return nil, err
	}

	return &Flow{
		store: store,
		opts:  o,
		log:   o.log.With().Str("component", "wizard-flow").Logger(),
		state: StateEventType,
	}, nil
}

// Store returns the store the flow drives.
func (f *Flow) Store() *Store {
	return f.store
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.log.Debug().Stringer("from", f.state).Stringer("to", s).Msg("transition")
	f.state = s
}

// Next validates the current step and moves to the following one. The
// fourth step is left through Submit.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	step, ok := f.state.Step()
	if !ok || step == StepDetails {
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, f.state)
	}

	if err := ValidateStep(f.store.Data(), step); err != nil {
		return err
	}

	f.setState(f.state + 1)
	return nil
}

// Back moves to the previous step and reports true. From the first step it
// abandons the flow, discarding the session, and reports false.
func (f *Flow) Back() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateMenu, StateLocation, StateDetails:
		f.setState(f.state - 1)
		return true
	case StateEventType:
		if err := f.store.Reset(); err == nil {
			f.setState(StateAbandoned)
		}
	}
	return false
}

// Abandon leaves the flow from any step, discarding the session. Nothing has
// been persisted at that point so there is nothing to clean up.
func (f *Flow) Abandon() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.state.Step(); !ok {
		return fmt.Errorf("%w: abandon from %s", ErrInvalidTransition, f.state)
	}
	if err := f.store.Reset(); err != nil {
		return err
	}
	f.setState(StateAbandoned)
	return nil
}

// NewDish adds an empty dish with a freshly generated id.
func (f *Flow) NewDish() (Dish, error) {
	d := Dish{ID: f.opts.id.New()}
	if err := f.store.AddDish(d); err != nil {
		return Dish{}, err
	}
	return d, nil
}

// Submit validates the whole session and submits it. It is only allowed from
// the last step. On success the flow completes and the store is emptied; on
// failure the flow returns to the last step with the session untouched so the
// user can retry.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.state != StateDetails {
		s := f.state
		f.mu.Unlock()
		return "", fmt.Errorf("%w: submit from %s", ErrInvalidTransition, s)
	}
	if err := ValidateAll(f.store.Data()); err != nil {
		f.mu.Unlock()
		return "", err
	}
	f.setState(StateSubmitting)
	f.mu.Unlock()

	eventID, err := f.store.Submit(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.setState(StateDetails)
		return "", err
	}

	if rerr := f.store.Reset(); rerr != nil {
		f.log.Warn().Err(rerr).Msg("reset after submit")
	}
	f.setState(StateCompleted)
	return eventID, nil
}

// StepProgress is the display state of one step.
type StepProgress struct {
	Step      Step
	Label     string
	Completed bool
	Current   bool
}

// Progress describes the four steps relative to the current state.
func (f *Flow) Progress() []StepProgress {
	state := f.State()

	current, ok := state.Step()
	if !ok {
		switch state {
		case StateSubmitting, StateCompleted:
			current = StepDetails + 1
		default:
			current = 0
		}
	}

	out := make([]StepProgress, 0, len(Steps))
	for _, s := range Steps {
		out = append(out, StepProgress{
			Step:      s,
			Label:     s.String(),
			Completed: s < current,
			Current:   s == current,
		})
	}
	return out
}

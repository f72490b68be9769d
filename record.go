package wizard

import (
	"fmt"
	"time"

	"github.com/wellcome-app/wizard/clock"
	"github.com/wellcome-app/wizard/types"
)

// EventCreatedType is the record type name of a submitted event.
const EventCreatedType = "meal-event-created"

// EventRecord is the stored form of a submitted session: numbers are parsed,
// dates are calendar days and the price is in cents.
type EventRecord struct {
	ID                   string    `json:"id"`
	EventType            string    `json:"event_type"`
	CuisineTypes         []string  `json:"cuisine_types"`
	ServedInSequence     bool      `json:"served_in_sequence"`
	Dishes               []Dish    `json:"dishes"`
	Address              string    `json:"address"`
	Facilities           []string  `json:"facilities"`
	Rules                []string  `json:"rules"`
	PriceCents           int64     `json:"price_cents"`
	MaxGuests            int       `json:"max_guests"`
	Date                 time.Time `json:"date"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	Title                string    `json:"title,omitempty"`
	Description          string    `json:"description,omitempty"`
	VeganOptions         bool      `json:"vegan_options"`
	Substitutions        bool      `json:"substitutions"`
	MenuAlterations      bool      `json:"menu_alterations"`
	SubmittedAt          time.Time `json:"submitted_at"`
}

// NewRecord maps a submission to its stored form. It fails when the details
// cannot be parsed, which ValidateAll rules out beforehand.
func NewRecord(sub *Submission) (*EventRecord, error) {
	s := sub.Session
	d := s.Details

	price, err := ParsePrice(d.PricePerGuest)
	if err != nil {
		return nil, err
	}
	guests, err := ParseMaxGuests(d.MaxGuests)
	if err != nil {
		return nil, err
	}
	if d.Date == nil || d.RegistrationDeadline == nil {
		return nil, fmt.Errorf("wizard: submission %s has no date or registration deadline", sub.ID)
	}

	s = s.Clone()
	return &EventRecord{
		ID:                   sub.ID,
		EventType:            s.EventType,
		CuisineTypes:         s.CuisineTypes,
		ServedInSequence:     s.IsServedInSequence,
		Dishes:               s.Dishes,
		Address:              s.Location.Address,
		Facilities:           s.Location.Facilities,
		Rules:                s.Location.Rules,
		PriceCents:           price,
		MaxGuests:            guests,
		Date:                 clock.Day(*d.Date),
		RegistrationDeadline: clock.Day(*d.RegistrationDeadline),
		Title:                d.Title,
		Description:          d.Description,
		VeganOptions:         s.VeganOptions,
		Substitutions:        s.Substitutions,
		MenuAlterations:      s.MenuAlterations,
		SubmittedAt:          sub.SubmittedAt.UTC(),
	}, nil
}

// NewRecordTypes returns a type registry for the records written by this
// package, encoded with the named codec.
func NewRecordTypes(codecName string) (*types.Registry, error) {
	return types.NewRegistry(map[string]*types.Type{
		EventCreatedType: {
			Init: func() any { return &EventRecord{} },
		},
	}, types.Codec(codecName))
}

package wizard

import (
	"time"

	"github.com/wellcome-app/wizard/clock"
)

// Dish is one item of the menu. The ID is assigned by whoever creates the
// dish and stays stable for as long as the dish is part of the session.
type Dish struct {
	ID          string `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	Description string `json:"description" msgpack:"description"`
}

// LocationDetails describes where the event takes place. Facilities and
// Rules are sets of catalog labels kept in the order they were selected.
type LocationDetails struct {
	Address    string   `json:"address" msgpack:"address"`
	Facilities []string `json:"facilities" msgpack:"facilities"`
	Rules      []string `json:"rules" msgpack:"rules"`
}

// EventDetails holds pricing and scheduling as typed by the host. Prices and
// guest counts stay text until the session is validated for submission.
type EventDetails struct {
	PricePerGuest        string     `json:"price_per_guest" msgpack:"price_per_guest"`
	MaxGuests            string     `json:"max_guests" msgpack:"max_guests"`
	Date                 *time.Time `json:"date" msgpack:"date"`
	RegistrationDeadline *time.Time `json:"registration_deadline" msgpack:"registration_deadline"`
	Title                string     `json:"title" msgpack:"title"`
	Description          string     `json:"description" msgpack:"description"`
}

// Session is the event under construction. The zero value is the state of a
// freshly entered wizard.
type Session struct {
	EventType          string          `json:"event_type" msgpack:"event_type"`
	CuisineTypes       []string        `json:"cuisine_types" msgpack:"cuisine_types"`
	IsServedInSequence bool            `json:"is_served_in_sequence" msgpack:"is_served_in_sequence"`
	Dishes             []Dish          `json:"dishes" msgpack:"dishes"`
	Location           LocationDetails `json:"location" msgpack:"location"`
	Details            EventDetails    `json:"details" msgpack:"details"`
	VeganOptions       bool            `json:"vegan_options" msgpack:"vegan_options"`
	Substitutions      bool            `json:"substitutions" msgpack:"substitutions"`
	MenuAlterations    bool            `json:"menu_alterations" msgpack:"menu_alterations"`
}

// NewSession returns the session a host starts from: nothing selected, no
// dishes and all flags off.
func NewSession() Session {
	return Session{}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	c := s
	c.CuisineTypes = cloneStrings(s.CuisineTypes)
	if s.Dishes != nil {
		c.Dishes = make([]Dish, len(s.Dishes))
		copy(c.Dishes, s.Dishes)
	}
	c.Location.Facilities = cloneStrings(s.Location.Facilities)
	c.Location.Rules = cloneStrings(s.Location.Rules)
	c.Details.Date = cloneTime(s.Details.Date)
	c.Details.RegistrationDeadline = cloneTime(s.Details.RegistrationDeadline)
	return c
}

// Dish returns the dish with the given id.
func (s Session) Dish(id string) (Dish, bool) {
	for _, d := range s.Dishes {
		if d.ID == id {
			return d, true
		}
	}
	return Dish{}, false
}

// DishPatch carries the dish fields to replace. Nil fields are left as is.
type DishPatch struct {
	Name        *string
	Description *string
}

func (p DishPatch) apply(d Dish) Dish {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}

// LocationPatch carries the location fields to replace. A nil slice leaves
// the set untouched, an empty non-nil slice clears it.
type LocationPatch struct {
	Address    *string
	Facilities []string
	Rules      []string
}

// DetailsPatch carries the detail fields to replace. Nil fields are left as is.
// Dates are stored as calendar days.
type DetailsPatch struct {
	PricePerGuest        *string
	MaxGuests            *string
	Date                 *time.Time
	RegistrationDeadline *time.Time
	Title                *string
	Description          *string
}

func (p DetailsPatch) apply(d EventDetails) EventDetails {
	if p.PricePerGuest != nil {
		d.PricePerGuest = *p.PricePerGuest
	}
	if p.MaxGuests != nil {
		d.MaxGuests = *p.MaxGuests
	}
	if p.Date != nil {
		day := clock.Day(*p.Date)
		d.Date = &day
	}
	if p.RegistrationDeadline != nil {
		day := clock.Day(*p.RegistrationDeadline)
		d.RegistrationDeadline = &day
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// Time returns a pointer to t, for building patches.
func Time(t time.Time) *time.Time {
	return &t
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

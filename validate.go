package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Step is one of the four screens of the wizard.
type Step int

const (
	StepEventType Step = iota + 1
	StepMenu
	StepLocation
	StepDetails
)

// Steps lists the steps in the order they are walked.
var Steps = []Step{StepEventType, StepMenu, StepLocation, StepDetails}

func (s Step) String() string {
	switch s {
	case StepEventType:
		return "Evento"
	case StepMenu:
		return "Cardápio"
	case StepLocation:
		return "Local"
	case StepDetails:
		return "Detalhes"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// ValidationError reports a required field that is missing or malformed
// when leaving a step. Message is meant for the user.
type ValidationError struct {
	Step    Step
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: %s: %s: %s", e.Step, e.Field, e.Message)
}

func invalid(step Step, field, msg string) error {
	return &ValidationError{Step: step, Field: field, Message: msg}
}

// ValidateStep checks that the session holds what the given step requires
// before moving past it.
func ValidateStep(s Session, step Step) error {
	switch step {
	case StepEventType:
		if s.EventType == "" {
			return invalid(step, "event_type", "Selecione o tipo de evento.")
		}
		if len(s.CuisineTypes) == 0 {
			return invalid(step, "cuisine_types", "Selecione pelo menos um tipo de culinária.")
		}

	case StepMenu:
		if len(s.Dishes) == 0 {
			return invalid(step, "dishes", "Adicione pelo menos um prato ao cardápio.")
		}
		for i, d := range s.Dishes {
			if strings.TrimSpace(d.Name) == "" {
				return invalid(step, fmt.Sprintf("dishes[%d].name", i), "Preencha o nome de todos os pratos.")
			}
		}

	case StepLocation:
		if strings.TrimSpace(s.Location.Address) == "" {
			return invalid(step, "location.address", "Informe o endereço do local.")
		}

	case StepDetails:
		d := s.Details
		const incomplete = "Preencha todos os campos obrigatórios."
		switch {
		case strings.TrimSpace(d.PricePerGuest) == "":
			return invalid(step, "details.price_per_guest", incomplete)
		case strings.TrimSpace(d.MaxGuests) == "":
			return invalid(step, "details.max_guests", incomplete)
		case d.Date == nil:
			return invalid(step, "details.date", incomplete)
		case d.RegistrationDeadline == nil:
			return invalid(step, "details.registration_deadline", incomplete)
		}
		if _, err := ParsePrice(d.PricePerGuest); err != nil {
			return invalid(step, "details.price_per_guest", "Informe um valor por convidado válido.")
		}
		if _, err := ParseMaxGuests(d.MaxGuests); err != nil {
			return invalid(step, "details.max_guests", "Informe um número de convidados válido.")
		}
		if d.RegistrationDeadline.After(*d.Date) {
			return invalid(step, "details.registration_deadline", "O prazo de inscrição não pode ser depois da data do evento.")
		}

	default:
		return fmt.Errorf("wizard: unknown step %d", int(step))
	}
	return nil
}

// ValidateAll checks every step in order and returns the first failure.
func ValidateAll(s Session) error {
	for _, step := range Steps {
		if err := ValidateStep(s, step); err != nil {
			return err
		}
	}
	return nil
}

var (
	errPrice     = errors.New("wizard: invalid price")
	errMaxGuests = errors.New("wizard: invalid guest count")
)

// MaxPriceCents caps the amount per guest at R$ 1.000.000,00.
const MaxPriceCents = 100_000_000

var (
	// 1.049,90 or 49,90 or 1.000
	priceBR = regexp.MustCompile(`^(\d{1,3}(?:\.\d{3})+|\d+)(?:,(\d{1,2}))?$`)
	// 49.90 or 12.5
	priceDot = regexp.MustCompile(`^(\d+)(?:\.(\d{1,2}))?$`)
)

// ParsePrice parses a non-negative amount per guest and returns it in cents.
// Both "49.90" and the pt-BR form "1.049,90" are accepted, with or without
// an "R$" prefix. A dot followed by exactly three digits is a thousands
// separator, so "1.000" is one thousand. Signs, exponents and amounts above
// MaxPriceCents are rejected.
func ParsePrice(s string) (int64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSpace(strings.TrimPrefix(v, "R$"))

	m := priceBR.FindStringSubmatch(v)
	if m == nil {
		m = priceDot.FindStringSubmatch(v)
	}
	if m == nil {
		return 0, fmt.Errorf("%w: %q", errPrice, s)
	}

	units, err := strconv.ParseInt(strings.ReplaceAll(m[1], ".", ""), 10, 64)
	if err != nil || units > MaxPriceCents/100 {
		return 0, fmt.Errorf("%w: %q", errPrice, s)
	}

	var cents int64
	switch frac := m[2]; len(frac) {
	case 1:
		cents = int64(frac[0]-'0') * 10
	case 2:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	}

	total := units*100 + cents
	if total > MaxPriceCents {
		return 0, fmt.Errorf("%w: %q", errPrice, s)
	}
	return total, nil
}

// ParseMaxGuests parses a positive guest count.
func ParseMaxGuests(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errMaxGuests, s)
	}
	return n, nil
}

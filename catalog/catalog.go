// Package catalog holds the fixed lists of values the wizard's selection
// fields may take: event types, cuisines, location facilities and house rules.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wellcome-app/wizard/codec"
)

var ErrInvalid = errors.New("wizard: invalid catalog")

// Catalog is static reference data. It is never mutated by the wizard.
type Catalog struct {
	EventTypes []string `json:"event_types" msgpack:"event_types"`
	Cuisines   []string `json:"cuisines" msgpack:"cuisines"`
	Facilities []string `json:"facilities" msgpack:"facilities"`
	Rules      []string `json:"rules" msgpack:"rules"`
}

// Default returns the catalogs shipped with the app.
func Default() *Catalog {
	return &Catalog{
		EventTypes: []string{
			"Café da manhã", "Brunch", "Almoço",
			"Lanche", "Jantar", "Degustação",
			"Pic-nic", "Coquetel", "Outro",
		},
		Cuisines: []string{
			"Africana", "Alemã", "Asiática", "Árabe",
			"Argentina", "Baiana", "Brasileira", "Carnes",
			"Café colonial", "Chinesa", "Colombiana",
			"Contemporânea", "Coreana", "Crepes",
			"Doces e bolos", "Espanhola", "Francesa",
			"Frutos do mar", "Gaúcha", "Grega",
			"Hamburguer", "Indiana", "Italiana",
			"Japonesa", "Lanches", "Mexicana", "Mineira",
			"Mediterrânea", "Nordestina", "Pasteis",
			"Peruana", "Pizza", "Portuguesa",
			"Sopas e Caldos", "Tailandesa", "Variada",
			"Vegana", "Vegetariana",
		},
		Facilities: []string{
			"Estacionamento para visitantes",
			"Edifício com elevador",
			"Ar condicionado",
			"Próximo a pontos de ônibus ou metrô",
			"Estacionamento rotativo próximo",
			"Espaço para fumantes",
			"Segurança privada",
			"Rampas de acessibilidade",
		},
		Rules: []string{
			"Não é permitido fumar",
			"Barulho moderado",
			"Não indicado para crianças",
			"Não aceita animais",
		},
	}
}

// Load reads a catalog file. The codec is picked from the file extension.
func Load(path string) (*Catalog, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var cat Catalog
	if err := c.Unmarshal(b, &cat); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks that every list is non-empty and holds distinct,
// non-blank labels.
func (c *Catalog) Validate() error {
	lists := []struct {
		name   string
		values []string
	}{
		{"event_types", c.EventTypes},
		{"cuisines", c.Cuisines},
		{"facilities", c.Facilities},
		{"rules", c.Rules},
	}

	for _, l := range lists {
		if len(l.values) == 0 {
			return fmt.Errorf("%w: %s is empty", ErrInvalid, l.name)
		}
		seen := make(map[string]struct{}, len(l.values))
		for _, v := range l.values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: %s has a blank label", ErrInvalid, l.name)
			}
			if _, ok := seen[v]; ok {
				return fmt.Errorf("%w: %s lists %q twice", ErrInvalid, l.name, v)
			}
			seen[v] = struct{}{}
		}
	}
	return nil
}

func (c *Catalog) HasEventType(v string) bool { return contains(c.EventTypes, v) }
func (c *Catalog) HasCuisine(v string) bool   { return contains(c.Cuisines, v) }
func (c *Catalog) HasFacility(v string) bool  { return contains(c.Facilities, v) }
func (c *Catalog) HasRule(v string) bool      { return contains(c.Rules, v) }

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerators(t *testing.T) {
	for _, name := range []string{"nuid", "uuid"} {
		t.Run(name, func(t *testing.T) {
			g, err := Named(name)
			if err != nil {
				t.Fatal(err)
			}

			seen := make(map[string]struct{})
			for i := 0; i < 1000; i++ {
				v := g.New()
				if v == "" {
					t.Fatal("empty id")
				}
				if _, ok := seen[v]; ok {
					t.Fatalf("duplicate id %s", v)
				}
				seen[v] = struct{}{}
			}
		})
	}
}

func TestUUIDFormat(t *testing.T) {
	if _, err := uuid.Parse(UUID.New()); err != nil {
		t.Error(err)
	}
}

func TestNamedUnknown(t *testing.T) {
	if _, err := Named("ulid"); err == nil {
		t.Error("expected error")
	}
}

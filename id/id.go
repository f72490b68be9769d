package id

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nuid"
)

var (
	UUID ID = &uuidGen{}
	NUID ID = &nuidGen{}
)

// ID is an interface for generating unique random identifiers. It is used
// for dish ids and for submission ids.
type ID interface {
	New() string
}

// uuidGen implements ID to generate UUIDs.
type uuidGen struct{}

func (i *uuidGen) New() string {
	return uuid.New().String()
}

// nuidGen implements ID to generate NUIDs.
type nuidGen struct{}

func (i *nuidGen) New() string {
	return nuid.Next()
}

// Named returns the generator registered under name, either "nuid" or "uuid".
func Named(name string) (ID, error) {
	switch name {
	case "nuid":
		return NUID, nil
	case "uuid":
		return UUID, nil
	}
	return nil, fmt.Errorf("wizard: unknown id generator %q", name)
}

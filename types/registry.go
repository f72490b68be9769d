package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/wellcome-app/wizard/codec"
)

var (
	ErrTypeNotValid      = errors.New("wizard: type not valid")
	ErrTypeNotRegistered = errors.New("wizard: type not registered")
	ErrNoTypeForStruct   = errors.New("wizard: no type for struct")

	nameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Type describes a record type stored in the event stream.
type Type struct {
	// Init returns a pointer to a new zero value of the type.
	Init func() any
}

type registryOption func(o *Registry) error

func (f registryOption) addOption(o *Registry) error {
	return f(o)
}

// RegistryOption models an option when creating a type registry.
type RegistryOption interface {
	addOption(o *Registry) error
}

// Codec sets the serialization codec by name. The default is JSON.
func Codec(name string) RegistryOption {
	return registryOption(func(o *Registry) error {
		c, err := codec.Get(name)
		if err != nil {
			return err
		}
		o.codec = c
		return nil
	})
}

// Registry maps record type names, such as "meal-event-created", to Go types
// and encodes values of those types with a single codec.
type Registry struct {
	codec codec.Codec

	types  map[string]*Type
	rtypes map[reflect.Type]string
}

// Codec returns the codec used by the registry.
func (r *Registry) Codec() codec.Codec {
	return r.codec
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) validate(name string, typ *Type) error {
	if name == "" {
		return fmt.Errorf("%w: missing name", ErrTypeNotValid)
	}

	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q must be lower-case words joined by dashes", ErrTypeNotValid, name)
	}

	if typ == nil || typ.Init == nil {
		return fmt.Errorf("%w: %s: init func is nil", ErrTypeNotValid, name)
	}

	v := typ.Init()
	if v == nil {
		return fmt.Errorf("%w: %s: init func returns nil", ErrTypeNotValid, name)
	}

	rt := reflect.TypeOf(v)
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s: init func must return a pointer to a struct", ErrTypeNotValid, name)
	}

	if other, ok := r.rtypes[rt]; ok {
		return fmt.Errorf("%w: %s: %s already registered as %q", ErrTypeNotValid, name, rt, other)
	}

	// The zero value must survive the codec.
	b, err := r.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: failed to marshal with %s: %s", ErrTypeNotValid, name, r.codec.Name(), err)
	}
	if err := r.codec.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: failed to unmarshal with %s: %s", ErrTypeNotValid, name, r.codec.Name(), err)
	}

	return nil
}

func (r *Registry) addType(name string, typ *Type) {
	r.types[name] = typ

	rt := reflect.TypeOf(typ.Init())
	r.rtypes[rt] = name
	r.rtypes[rt.Elem()] = name
}

// Init returns a new value of the registered type name.
func (r *Registry) Init(t string) (any, error) {
	x, ok := r.types[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, t)
	}
	return x.Init(), nil
}

// Lookup returns the registered name of the type of v. Both the struct value
// and a pointer to it resolve to the same name.
func (r *Registry) Lookup(v any) (string, error) {
	rt := reflect.TypeOf(v)
	t, ok := r.rtypes[rt]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoTypeForStruct, rt)
	}
	return t, nil
}

// Marshal encodes v, which must be of a registered type, and returns its
// type name along with the bytes.
func (r *Registry) Marshal(v any) (string, []byte, error) {
	t, err := r.Lookup(v)
	if err != nil {
		return "", nil, err
	}

	b, err := r.codec.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("%s: marshal error: %w", t, err)
	}
	return t, b, nil
}

// UnmarshalType decodes b into a new value of the registered type name.
func (r *Registry) UnmarshalType(b []byte, t string) (any, error) {
	v, err := r.Init(t)
	if err != nil {
		return nil, err
	}
	if err := r.codec.Unmarshal(b, v); err != nil {
		return nil, fmt.Errorf("%s: unmarshal error: %w", t, err)
	}
	return v, nil
}

// NewRegistry validates and indexes the given types.
func NewRegistry(types map[string]*Type, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		codec:  codec.Default,
		types:  make(map[string]*Type),
		rtypes: make(map[reflect.Type]string),
	}

	for _, o := range opts {
		if err := o.addOption(r); err != nil {
			return nil, err
		}
	}

	for n, t := range types {
		if err := r.validate(n, t); err != nil {
			return nil, err
		}
		r.addType(n, t)
	}

	return r, nil
}

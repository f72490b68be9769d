package wizard

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/wellcome-app/wizard/catalog"
	"github.com/wellcome-app/wizard/clock"
	"github.com/wellcome-app/wizard/id"
)

type options struct {
	catalog *catalog.Catalog
	clock   clock.Clock
	id      id.ID
	log     zerolog.Logger
}

func defaultOptions() options {
	return options{
		catalog: catalog.Default(),
		clock:   clock.Time,
		id:      id.NUID,
		log:     zerolog.Nop(),
	}
}

func (o *options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt.addOption(o); err != nil {
			return err
		}
	}
	return nil
}

type optionFn func(o *options) error

func (f optionFn) addOption(o *options) error {
	return f(o)
}

// Option configures a Store, a Flow or an EventStoreManager.
type Option interface {
	addOption(o *options) error
}

// Catalog sets the catalogs selections are checked against. Default is
// catalog.Default().
func Catalog(c *catalog.Catalog) Option {
	return optionFn(func(o *options) error {
		if c == nil {
			return errors.New("wizard: nil catalog")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		o.catalog = c
		return nil
	})
}

// Clock sets a clock implementation. Default is clock.Time.
func Clock(c clock.Clock) Option {
	return optionFn(func(o *options) error {
		o.clock = c
		return nil
	})
}

// ID sets a unique ID generator implementation. Default is id.NUID.
func ID(g id.ID) Option {
	return optionFn(func(o *options) error {
		o.id = g
		return nil
	})
}

// Logger sets the logger. Default discards everything.
func Logger(l zerolog.Logger) Option {
	return optionFn(func(o *options) error {
		o.log = l
		return nil
	})
}

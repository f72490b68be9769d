package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/wellcome-app/wizard"
	"github.com/wellcome-app/wizard/catalog"
	"github.com/wellcome-app/wizard/id"
	"github.com/wellcome-app/wizard/internal/config"
	"github.com/wellcome-app/wizard/types"
)

// app holds what the subcommands share. The event store is connected lazily.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	catalog *catalog.Catalog
	ids     id.ID
	types   *types.Registry

	srv      *server.Server
	storeDir string
	nc       *nats.Conn
	es       wizard.EventStore
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		var err error
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", cfg.CatalogPath).Msg("catalog loaded")
	}

	ids, err := id.Named(cfg.IDGenerator)
	if err != nil {
		return nil, err
	}

	reg, err := wizard.NewRecordTypes(cfg.EventCodec)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		catalog: cat,
		ids:     ids,
		types:   reg,
	}, nil
}

func (a *app) options() []wizard.Option {
	return []wizard.Option{
		wizard.Catalog(a.catalog),
		wizard.ID(a.ids),
		wizard.Logger(a.log),
	}
}

// subjectPrefix matches the default subjects of the event store stream.
func (a *app) subjectPrefix() string {
	return strings.ToLower(a.cfg.EventStream)
}

func (a *app) startEmbedded() (string, error) {
	dir := a.cfg.NATSStoreDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "wellcome-nats-")
		if err != nil {
			return "", err
		}
		a.storeDir = dir
	}

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  dir,
		NoSigs:    true,
	})
	if err != nil {
		return "", err
	}

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return "", fmt.Errorf("embedded nats server not ready")
	}

	a.srv = srv
	a.log.Info().Str("url", srv.ClientURL()).Str("store_dir", dir).Msg("embedded nats server started")
	return srv.ClientURL(), nil
}

// EventStore connects to NATS and ensures the event stream exists.
func (a *app) EventStore() (wizard.EventStore, error) {
	if a.es != nil {
		return a.es, nil
	}

	url := a.cfg.NATSURL
	if a.cfg.NATSEmbedded {
		var err error
		url, err = a.startEmbedded()
		if err != nil {
			return nil, err
		}
	}

	nc, err := nats.Connect(url, nats.Name("wellcome"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	a.nc = nc

	m, err := wizard.NewEventStoreManager(nc, wizard.Logger(a.log))
	if err != nil {
		return nil, err
	}

	es, err := m.EnsureEventStore(&wizard.EventStoreConfig{
		Name:        a.cfg.EventStream,
		Description: "WellCome meal events",
		Storage:     nats.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure event store: %w", err)
	}

	a.es = es
	return es, nil
}

func (a *app) Submitter() (wizard.Submitter, error) {
	if a.cfg.SubmitSimulate {
		return &wizard.SimulatedSubmitter{Delay: a.cfg.SubmitDelay}, nil
	}

	es, err := a.EventStore()
	if err != nil {
		return nil, err
	}
	return wizard.NewEventStoreSubmitter(es, a.types, a.subjectPrefix()), nil
}

func (a *app) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
	if a.srv != nil {
		a.srv.Shutdown()
		a.srv.WaitForShutdown()
	}
	if a.storeDir != "" {
		_ = os.RemoveAll(a.storeDir)
	}
}

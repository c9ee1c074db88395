package execution

import (
	"time"

	"code.zenithprotocol.io/zenith/core/assets"
	"code.zenithprotocol.io/zenith/core/events"
	"code.zenithprotocol.io/zenith/core/ledger"
	"code.zenithprotocol.io/zenith/logging"
)

// TimeService ...
//go:generate go run github.com/golang/mock/mockgen -destination mocks/time_service_mock.go -package mocks code.zenithprotocol.io/zenith/core/execution TimeService
type TimeService interface {
	GetTimeNow() time.Time
}

// Broker ...
//go:generate go run github.com/golang/mock/mockgen -destination mocks/broker_mock.go -package mocks code.zenithprotocol.io/zenith/core/execution Broker
type Broker interface {
	Send(evt events.Event)
}

// Engine hosts the market-core evaluators: limit order creation and
// cancellation and call order updates. Each operation runs in two
// phases, validate then apply; the apply phase executes against a
// store snapshot bracket so a failure rolls every mutation back as one
// unit and the ledger is left untouched.
//
// The engine is invoked by the transaction pipeline with one operation
// at a time, in block order. It never runs concurrently with itself.
type Engine struct {
	Config
	log *logging.Logger

	store   *ledger.Store
	assets  *assets.Service
	timeSvc TimeService
	broker  Broker
}

// New returns an execution engine using the given ledger store and
// asset metadata service.
func New(
	log *logging.Logger,
	config Config,
	store *ledger.Store,
	assetSvc *assets.Service,
	timeSvc TimeService,
	broker Broker,
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		Config:  config,
		log:     log,
		store:   store,
		assets:  assetSvc,
		timeSvc: timeSvc,
		broker:  broker,
	}
}

// ReloadConf updates the engine configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
}

package assets

import (
	"errors"
	"sort"

	"code.zenithprotocol.io/zenith/core/types"
	"code.zenithprotocol.io/zenith/logging"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

var (
	ErrAssetDoesNotExist    = errors.New("asset does not exist")
	ErrAssetAlreadyExists   = errors.New("asset already exists")
	ErrAssetNotMarketIssued = errors.New("asset is not market issued")
)

// Service is the asset metadata registry. Within the market core it is
// a read-only collaborator: feeds and asset definitions are published
// by operations outside this core.
type Service struct {
	log *logging.Logger
	cfg Config

	// symbol to asset
	assets map[string]*types.Asset
}

func New(log *logging.Logger, cfg Config) *Service {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	return &Service{
		log:    log,
		cfg:    cfg,
		assets: map[string]*types.Asset{},
	}
}

// Register adds an asset definition to the registry.
func (s *Service) Register(a *types.Asset) error {
	if _, ok := s.assets[a.Symbol]; ok {
		return ErrAssetAlreadyExists
	}
	s.assets[a.Symbol] = a
	if s.log.IsDebug() {
		s.log.Debug("asset registered",
			zap.String("symbol", a.Symbol),
			zap.Bool("market-issued", a.IsMarketIssued()),
		)
	}
	return nil
}

// Get returns the asset with the given symbol.
func (s *Service) Get(symbol string) (*types.Asset, error) {
	a, ok := s.assets[symbol]
	if !ok {
		return nil, ErrAssetDoesNotExist
	}
	return a, nil
}

// All returns every registered asset, ordered by symbol.
func (s *Service) All() []*types.Asset {
	symbols := maps.Keys(s.assets)
	sort.Strings(symbols)
	out := make([]*types.Asset, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, s.assets[sym])
	}
	return out
}

// BitAssetData returns the synthetic metadata of a market-issued asset.
func (s *Service) BitAssetData(symbol string) (*types.BitAssetData, error) {
	a, err := s.Get(symbol)
	if err != nil {
		return nil, err
	}
	if !a.IsMarketIssued() {
		return nil, ErrAssetNotMarketIssued
	}
	return a.BitAsset, nil
}

// PublishFeed replaces the current feed of a market-issued asset.
func (s *Service) PublishFeed(symbol string, feed *types.PriceFeed) error {
	bad, err := s.BitAssetData(symbol)
	if err != nil {
		return err
	}
	bad.CurrentFeed = feed
	return nil
}

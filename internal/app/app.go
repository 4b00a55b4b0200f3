package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"fxrelay/internal/adapters/cache"
	"fxrelay/internal/adapters/httpclient"
	"fxrelay/internal/adapters/postgres"
	"fxrelay/internal/bank"
	"fxrelay/internal/config"
	"fxrelay/internal/domain"
	"fxrelay/internal/host"
	"fxrelay/internal/identity"
	"fxrelay/internal/oracle"
	"fxrelay/internal/platform/db"
	"fxrelay/internal/relay"
	"fxrelay/internal/requester"
	"fxrelay/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const (
	LabelCurrencyHub = "currency-hub"
	LabelRequester   = "requester"
	LabelRelay       = "relay"
	LabelReporter    = "reporter"

	adminAccount = "admin"
)

// Nodes holds the addresses of the nodes the app runs.
type Nodes struct {
	CurrencyHub string `json:"currency_hub"`
	Requester   string `json:"requester"`
	Relay       string `json:"relay"`
	Reporter    string `json:"reporter"`
}

// App is a bus with every node attached, plus the optional price feed.
type App struct {
	Bus       *host.Bus
	Addr      *identity.AddressValidator
	Registry  *prometheus.Registry
	Nodes     Nodes
	Feeder    string
	Scheduler *oracle.Scheduler

	closers []func()
}

// ConfigureLogging sets the global logrus level, falling back to info.
func ConfigureLogging(level string) {
	logrus.SetOutput(os.Stdout)
	if parsedLvl, parseErr := logrus.ParseLevel(level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
}

// Build opens the configured store, restores or instantiates the nodes and
// seeds the static prices. The caller must Close the app.
func Build(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	addr, err := identity.NewAddressValidator(cfg.Address.Prefix)
	if err != nil {
		return nil, err
	}
	a.Addr = addr

	base, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Bus = host.NewBus(base, bank.NewKeeper(base), addr, a.Registry)

	if err = a.bootstrap(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err = a.seedPrices(ctx, cfg.Oracle.Prices); err != nil {
		a.Close()
		return nil, err
	}
	if len(cfg.Oracle.Pairs) > 0 {
		if err = a.buildFeed(cfg); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, cfg *config.AppConfig) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "leveldb":
		ldb, err := storage.NewLevelDB(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := ldb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close leveldb")
			}
		})
		logrus.WithField("path", cfg.Storage.Path).Info("✅ LevelDB store opened")
		return ldb, nil
	case "postgres":
		startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := db.CreatePoolAndPing(startupCtx, cfg.DbServer)
		if err != nil {
			logrus.WithError(err).Error("Error connecting to db")
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err = db.Migrate(startupCtx, pool); err != nil {
			return nil, err
		}
		logrus.Info("✅ Postgres connection successful")
		return postgres.NewKVStore(pool), nil
	default:
		return storage.NewMemory(), nil
	}
}

func (a *App) bootstrap(ctx context.Context, cfg *config.AppConfig) error {
	admin, err := a.Addr.Account(adminAccount)
	if err != nil {
		return err
	}
	feeder, err := a.Addr.Account(cfg.Oracle.Feeder)
	if err != nil {
		return err
	}
	a.Feeder = feeder

	hub, err := a.ensureNode(ctx, oracle.New(), LabelCurrencyHub, admin, oracle.InstantiateMsg{Feeder: feeder})
	if err != nil {
		return err
	}
	req, err := a.ensureNode(ctx, requester.New(), LabelRequester, admin, requester.InstantiateMsg{CurrencyHubAddress: hub})
	if err != nil {
		return err
	}
	rel, err := a.ensureNode(ctx, relay.New(), LabelRelay, admin, relay.InstantiateMsg{QueryDenom: cfg.Relay.QueryDenom})
	if err != nil {
		return err
	}
	rep, err := a.ensureNode(ctx, relay.NewReporter(), LabelReporter, admin, relay.ReporterInstantiateMsg{})
	if err != nil {
		return err
	}
	a.Nodes = Nodes{CurrencyHub: hub, Requester: req, Relay: rel, Reporter: rep}
	return nil
}

// ensureNode reattaches a node persisted by an earlier run or instantiates
// it.
func (a *App) ensureNode(ctx context.Context, c host.Contract, label, admin string, msg any) (string, error) {
	addr, ok, err := a.Bus.Restore(ctx, c, label)
	if err != nil {
		return "", err
	}
	if ok {
		logrus.WithFields(logrus.Fields{"node": label, "address": addr}).Info("node restored")
		return addr, nil
	}
	return a.Bus.Instantiate(ctx, c, label, admin, msg)
}

func (a *App) seedPrices(ctx context.Context, prices []config.StaticPrice) error {
	if len(prices) == 0 {
		return nil
	}
	msg := oracle.SetPrices{Prices: make([]oracle.Price, 0, len(prices))}
	for _, p := range prices {
		msg.Prices = append(msg.Prices, oracle.Price{
			BaseAssetDenom:  p.BaseDenom,
			QuoteAssetDenom: p.QuoteDenom,
			ArithmeticTwap:  p.ArithmeticTwap,
		})
	}
	if _, err := a.Bus.Execute(ctx, a.Nodes.CurrencyHub, a.Feeder, oracle.ExecuteMsg{SetPrices: &msg}); err != nil {
		return fmt.Errorf("failed to seed prices: %w", err)
	}
	logrus.WithField("count", len(prices)).Info("✅ Static prices seeded")
	return nil
}

func (a *App) buildFeed(cfg *config.AppConfig) error {
	// Base HTTP client (configurable timeout)
	httpTimeout := time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	client := httpclient.NewRatesAPIClient(&http.Client{Timeout: httpTimeout}, strings.TrimSuffix(cfg.Oracle.RatesAPI.BaseURL, "/"))

	quotes, err := cache.NewQuoteCache(cfg.Oracle.Cache.MaxItems, time.Duration(cfg.Oracle.Cache.TTLSeconds)*time.Second)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, quotes.Close)

	pairs := make([]oracle.FeedPair, 0, len(cfg.Oracle.Pairs))
	for _, p := range cfg.Oracle.Pairs {
		pairs = append(pairs, oracle.FeedPair{
			Denoms: domain.Pair{Base: p.BaseDenom, Quote: p.QuoteDenom},
			Codes:  domain.Pair{Base: strings.ToUpper(p.BaseCode), Quote: strings.ToUpper(p.QuoteCode)},
		})
	}
	feed := oracle.NewFeed(pairs, client, quotes, a.Bus, a.Nodes.CurrencyHub, a.Feeder)
	a.Scheduler = oracle.NewScheduler(feed, time.Duration(cfg.Oracle.IntervalSeconds)*time.Second)
	return nil
}

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mintgate/config"
	"mintgate/core/events"
	"mintgate/core/types"
	"mintgate/native/sale"
	"mintgate/observability/logging"
	"mintgate/rpc"
	"mintgate/state"
	"mintgate/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MINTGATE_ENV"))
	logger := logging.Setup("mintgated", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := seedGenesis(manager, cfg, logger); err != nil {
		logger.Error("Failed to seed genesis state", slog.Any("error", err))
		os.Exit(1)
	}

	engine := sale.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(&logEmitter{logger: logger})
	engine.SetMinter(&logMinter{logger: logger})
	engine.SetHeightFunc(heightSource(cfg.BlockIntervalSeconds))

	fixedUnit, err := parseAmount(cfg.FixedPrice)
	if err != nil {
		logger.Error("Invalid FixedPrice", slog.Any("error", err))
		os.Exit(1)
	}
	engine.RegisterPriceModel("fixed", sale.FixedPriceModel{Unit: fixedUnit})

	tierBase, err := parseAmount(cfg.TierBase)
	if err != nil {
		logger.Error("Invalid TierBase", slog.Any("error", err))
		os.Exit(1)
	}
	tierStep, err := parseAmount(cfg.TierStep)
	if err != nil {
		logger.Error("Invalid TierStep", slog.Any("error", err))
		os.Exit(1)
	}
	engine.RegisterPriceModel("ascending-tier", sale.AscendingTierModel{
		Base:     tierBase,
		Step:     tierStep,
		TierSize: cfg.TierSize,
	})

	mux := http.NewServeMux()
	mux.Handle("/", rpc.NewServer(engine, manager, logger))
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("mintgated listening", slog.String("address", cfg.RPCAddress))
	server := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedGenesis grants the configured authorities and writes the initial sale
// parameters. It runs only when the parameter store has never been
// initialised, so restarts never clobber admin changes.
func seedGenesis(manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	store := sale.NewParamStore(manager)
	initialized, err := store.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}

	params := sale.Params{
		FeeBps:         cfg.FeeBps,
		BuyLimitCount:  cfg.BuyLimitCount,
		BuyLimitPeriod: cfg.BuyLimitPeriod,
		PriceModel:     cfg.PriceModel,
	}
	if cfg.FeeCollector != "" {
		collector, err := parseAddress(cfg.FeeCollector)
		if err != nil {
			return fmt.Errorf("invalid FeeCollector: %w", err)
		}
		params.FeeCollector = collector
	}
	if err := store.Save(params); err != nil {
		return err
	}

	for role, value := range map[string]string{
		sale.RoleSaleOwner:      cfg.OwnerAddress,
		sale.RoleSaleGovernance: cfg.GovernanceAddress,
	} {
		if value == "" {
			logger.Warn("No genesis authority configured", slog.String("role", role))
			continue
		}
		addr, err := parseAddress(value)
		if err != nil {
			return fmt.Errorf("invalid address for %s: %w", role, err)
		}
		if err := manager.GrantRole(role, addr[:]); err != nil {
			return err
		}
	}
	return manager.Commit()
}

// heightSource maps wall-clock time onto the block-height scale used by sale
// windows and rate limits.
func heightSource(intervalSeconds uint64) func() uint64 {
	if intervalSeconds == 0 {
		intervalSeconds = 1
	}
	return func() uint64 {
		return uint64(time.Now().Unix()) / intervalSeconds
	}
}

// logEmitter writes every engine event to the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := carrier.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	l.logger.Info("sale event", attrs...)
}

// logMinter stands in for the collectible registry: it acknowledges every
// mint so purchases can settle, and leaves real registry integration to the
// deployment.
type logMinter struct {
	logger *slog.Logger
}

func (m *logMinter) Mint(recipient [20]byte, categoryID uint64, metadata []byte) error {
	m.logger.Info("minted collectible",
		slog.String("recipient", "0x"+hex.EncodeToString(recipient[:])),
		slog.Uint64("categoryId", categoryID),
		slog.Int("metadataBytes", len(metadata)),
	)
	return nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(addr) {
		return addr, fmt.Errorf("address must be 20 hex-encoded bytes")
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	return amount, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/config"
	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/internal/cta/strategies"
	"github.com/rxtech-lab/pulse-trading/internal/engine"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/gateway"
	binancegw "github.com/rxtech-lab/pulse-trading/internal/gateway/binance"
	"github.com/rxtech-lab/pulse-trading/internal/gateway/paper"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/simdata"
	"github.com/rxtech-lab/pulse-trading/internal/storage"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
	"github.com/urfave/cli/v3"
)

// runAction wires the full trading stack from the config file and runs it
// until interrupted.
func runAction(ctx context.Context, cmd *cli.Command) error {
	zlog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	eventCfg := event.DefaultConfig()
	if cfg.Event.TimerInterval > 0 {
		eventCfg.TimerInterval = cfg.Event.TimerInterval
	}

	eventCfg.DisableTimer = cfg.Event.DisableTimer

	events := event.NewEngine(eventCfg, zlog)
	mainEngine := engine.NewMainEngine(events, zlog)

	var paperGW *paper.Gateway

	var gw gateway.Gateway

	switch cfg.Gateway {
	case paper.GatewayName:
		paperGW = paper.New(events, zlog)
		if cfg.Gateways.Paper != nil {
			paperGW.SetBalance(cfg.Gateways.Paper.Balance)
		}

		gw = paperGW
	case binancegw.GatewayName:
		gw = binancegw.NewGateway(binancegw.Config{
			APIKey:    cfg.Gateways.Binance.APIKey,
			APISecret: cfg.Gateways.Binance.APISecret,
			Testnet:   cfg.Gateways.Binance.Testnet,
		}, events, zlog)
	}

	if err := mainEngine.AddGateway(gw); err != nil {
		return err
	}

	mainEngine.Start()
	defer mainEngine.Close()

	if err := mainEngine.Connect(ctx, cfg.Gateway); err != nil {
		return err
	}

	var store cta.DataStore

	if cfg.Storage.Path != "" {
		dbStore, err := storage.NewStore(cfg.Storage.Path, zlog)
		if err != nil {
			return err
		}
		defer dbStore.Close()

		store = dbStore

		if cfg.Storage.Record {
			recorder := storage.NewRecorder(dbStore, zlog)
			recorder.Start(events)
			defer recorder.Stop(events)
		}
	}

	strategyEngine := cta.NewStrategyEngine(mainEngine, store, cta.EngineTypeLive, cfg.Gateway, zlog)
	strategyEngine.Start()
	defer strategyEngine.Stop()

	for _, sc := range cfg.Strategies {
		strategy, err := strategies.New(sc.Type, sc.Settings)
		if err != nil {
			return err
		}

		if err := strategyEngine.AddStrategy(sc.Name, sc.Symbol, strategy); err != nil {
			return err
		}

		if err := strategyEngine.InitStrategy(sc.Name); err != nil {
			return err
		}

		if sc.AutoStart {
			if err := strategyEngine.StartStrategy(sc.Name); err != nil {
				return err
			}
		}
	}

	if paperGW != nil && cmd.Bool("sim") {
		go feedSyntheticTicks(ctx, paperGW, cfg)
	}

	log.Printf("trader running with gateway %s and %d strategies; press Ctrl-C to stop",
		cfg.Gateway, len(cfg.Strategies))

	<-ctx.Done()
	log.Println("shutting down")

	return nil
}

// feedSyntheticTicks drives the paper gateway with generated market data so
// strategies can be exercised without exchange connectivity.
func feedSyntheticTicks(ctx context.Context, gw *paper.Gateway, cfg *config.Config) {
	symbols := make(map[string]struct{})
	for _, sc := range cfg.Strategies {
		symbols[sc.Symbol] = struct{}{}
	}

	gen := simdata.NewGenerator(time.Now().UnixNano())

	feeds := make(map[string][]types.Tick)

	for symbol := range symbols {
		simCfg := simdata.DefaultConfig()
		simCfg.Symbol = symbol
		simCfg.Count = 100_000
		feeds[symbol] = gen.Ticks(simCfg)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	i := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ticks := range feeds {
				if i < len(ticks) {
					tick := ticks[i]
					tick.Timestamp = time.Now()
					gw.PushTick(tick)
				}
			}

			i++
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "trader",
		Usage: "Event-driven trading engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the trading engine from a config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML config file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "sim",
						Usage: "Feed synthetic market data into the paper gateway",
					},
				},
				Action: runAction,
			},
			{
				Name:  "version",
				Usage: "Print the engine version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Println(version.GetVersion())

					return nil
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

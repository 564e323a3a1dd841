package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rxtech-lab/paper-trading/internal/backtest"
	"github.com/rxtech-lab/paper-trading/internal/datasource"
	"github.com/rxtech-lab/paper-trading/internal/feed"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/simulation"
	"github.com/rxtech-lab/paper-trading/internal/store"
	"github.com/rxtech-lab/paper-trading/internal/strategy"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "papertrade",
		Usage: "Backtest strategies and paper-trade against live ticks",
		Commands: []*cli.Command{
			backtestCommand(),
			simulateCommand(),
			accountsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run a strategy over a historical bar file (CSV or Parquet)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the bar data file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Registered strategy name",
				Value:   strategy.SMACrossoverName,
			},
			&cli.StringFlag{
				Name:  "strategy-config",
				Usage: "Path to a YAML strategy config file",
			},
			&cli.FloatFlag{
				Name:    "capital",
				Aliases: []string{"c"},
				Usage:   "Initial capital",
				Value:   100000,
			},
			&cli.FloatFlag{
				Name:  "commission",
				Usage: "Commission rate per trade",
				Value: 0.001,
			},
			&cli.FloatFlag{
				Name:  "slippage",
				Usage: "Slippage rate per fill",
				Value: 0.0005,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the metrics report to this YAML file instead of stdout",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	strategyConfig := ""

	if path := cmd.String("strategy-config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(content)
	}

	config := backtest.Config{
		InitialCapital: cmd.Float("capital"),
		CommissionRate: cmd.Float("commission"),
		SlippageRate:   cmd.Float("slippage"),
		Strategy:       cmd.String("strategy"),
		StrategyConfig: strategyConfig,
	}

	configYAML, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	runner := backtest.NewRunner(strategy.DefaultRegistry, log)
	if err := runner.Initialize(string(configYAML)); err != nil {
		return err
	}

	source, err := datasource.NewDuckDBSource(log)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	runner.SetProgressCallback(func(current int, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
		}

		bar.Set(current)
	})

	result, err := runner.Run(ctx, source)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		return types.WriteMetrics(path, result.Metrics)
	}

	report, err := yaml.Marshal(result.Metrics)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s", report)

	return nil
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run one paper-trading account against a tick feed until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Account name",
				Value: "paper",
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "Existing account ID to restart instead of creating a new one",
			},
			&cli.FloatFlag{
				Name:    "capital",
				Aliases: []string{"c"},
				Usage:   "Initial capital for a new account",
				Value:   100000,
			},
			&cli.FloatFlag{
				Name:  "commission",
				Usage: "Commission rate per trade",
				Value: 0.001,
			},
			&cli.FloatFlag{
				Name:  "slippage",
				Usage: "Slippage rate per fill",
				Value: 0.0005,
			},
			&cli.StringFlag{
				Name:  "feed",
				Usage: "Tick feed: synthetic or binance",
				Value: "synthetic",
			},
			&cli.StringFlag{
				Name:  "snapshot-dir",
				Usage: "Directory for account snapshots",
				Value: "snapshots",
			},
			&cli.DurationFlag{
				Name:  "snapshot-interval",
				Usage: "Cadence for mark-to-market snapshots",
				Value: simulation.DefaultSnapshotInterval,
			},
			&cli.StringSliceFlag{
				Name:    "order",
				Aliases: []string{"O"},
				Usage:   "Limit order to place at start, formatted side:symbol:qty:limit (e.g. buy:BTCUSDT:1:65000)",
			},
		},
		Action: simulateAction,
	}
}

func simulateAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	snapshots, err := store.NewFileStore(cmd.String("snapshot-dir"), log)
	if err != nil {
		return err
	}

	var factory simulation.FeedFactory

	switch cmd.String("feed") {
	case "binance":
		factory = func() feed.Feed { return feed.NewBinanceFeed(log) }
	case "synthetic":
		factory = func() feed.Feed { return feed.NewSyntheticFeed(feed.DefaultSyntheticConfig(), log) }
	default:
		return fmt.Errorf("unknown feed %q", cmd.String("feed"))
	}

	registry := simulation.NewRegistry(snapshots, factory, cmd.Duration("snapshot-interval"), log)
	defer registry.Close()

	accountID := cmd.String("account")
	if accountID == "" {
		state, err := registry.Create(cmd.String("name"), cmd.Float("capital"), cmd.Float("commission"), cmd.Float("slippage"))
		if err != nil {
			return err
		}

		accountID = state.ID
		fmt.Printf("created account %s\n", accountID)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := registry.Start(runCtx, accountID); err != nil {
		return err
	}

	for _, spec := range cmd.StringSlice("order") {
		order, err := submitOrderSpec(registry, accountID, spec)
		if err != nil {
			return err
		}

		fmt.Printf("placed %s %s x%d @ %.4f as %s\n", order.Side, order.Symbol, order.Quantity, order.Price, order.ID)
	}

	fmt.Println("running; press Ctrl-C to stop")
	<-runCtx.Done()

	state, err := registry.Stop(accountID)
	if err != nil {
		return err
	}

	fmt.Printf("stopped; cash=%.2f trades=%d orders=%d\n", state.Cash, len(state.Trades), len(state.Orders))

	return nil
}

// submitOrderSpec parses side:symbol:qty:limit and places the order.
func submitOrderSpec(registry *simulation.Registry, accountID, spec string) (types.Order, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return types.Order{}, fmt.Errorf("invalid order spec %q, want side:symbol:qty:limit", spec)
	}

	quantity, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return types.Order{}, fmt.Errorf("invalid quantity in order spec %q: %w", spec, err)
	}

	limit, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return types.Order{}, fmt.Errorf("invalid limit price in order spec %q: %w", spec, err)
	}

	return registry.SubmitOrder(accountID, parts[1], types.Side(parts[0]), quantity, limit)
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "List known accounts and their status",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "snapshot-dir",
				Usage: "Directory for account snapshots",
				Value: "snapshots",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			log, err := logger.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			snapshots, err := store.NewFileStore(cmd.String("snapshot-dir"), log)
			if err != nil {
				return err
			}

			registry := simulation.NewRegistry(snapshots, nil, 0, log)

			summaries, err := registry.List()
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("no accounts")

				return nil
			}

			for _, s := range summaries {
				fmt.Printf("%s  %-8s  %-12s  capital=%.2f  value=%.2f  created=%s\n",
					s.ID, s.Status, s.Name, s.InitialCapital, s.CurrentValue, s.CreatedAt.Format(time.RFC3339))
			}

			return nil
		},
	}
}

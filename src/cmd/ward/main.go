package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/ward-market/src/cmd/ward/run"
	"github.com/jiaming2012/ward-market/src/config"
	"github.com/jiaming2012/ward-market/src/logger"
	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "ward",
	Short: "Run and inspect the ward market simulation",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control surface and tick the world on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		if cfg.Telemetry.Enabled {
			otelShutdown, err := run.SetupOTelSDK(ctx, cfg.Telemetry.ServiceName)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}

			defer func() {
				if err := otelShutdown(context.Background()); err != nil {
					log.Errorf("telemetry shutdown: %v", err)
				}
			}()
		}

		app, err := run.NewApp(cfg)
		if err != nil {
			return err
		}

		return run.Serve(ctx, app)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial subjects, fund and clock",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		result, err := app.Seed(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance the world by one tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			return err
		}

		interval, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return err
		}

		for i := 0; i < count; i++ {
			if i > 0 {
				time.Sleep(interval)
			}

			result, err := app.World.Tick(cmd.Context())
			if err != nil {
				return err
			}

			for _, ev := range result.Events {
				fmt.Println(ev.Text)
			}

			log.Infof("tick %d: %s, %.4f sim days", result.TickCount, result.Status, result.ElapsedDays)
		}

		return nil
	},
}

var tradeCmd = &cobra.Command{
	Use:   "trade --ticker CDFI --action short --quantity 1000",
	Short: "Place a trade against the fund",
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker, err := cmd.Flags().GetString("ticker")
		if err != nil {
			return err
		}

		action, err := cmd.Flags().GetString("action")
		if err != nil {
			return err
		}

		quantity, err := cmd.Flags().GetInt("quantity")
		if err != nil {
			return err
		}

		note, err := cmd.Flags().GetString("note")
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		result, err := app.World.PlaceTrade(cmd.Context(), &models.TradeRequest{
			Ticker:   ticker,
			Action:   models.TradeAction(strings.ToLower(action)),
			Quantity: quantity,
			Note:     note,
		})
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print subject and fund tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("history")
		if err != nil {
			return err
		}

		report, err := run.BuildReport(cmd.Context(), app.World, limit)
		if err != nil {
			return err
		}

		report.Render(os.Stdout)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export --what prices --ticker THRN --outDir ./out",
	Short: "Export price history or trades as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		what, err := cmd.Flags().GetString("what")
		if err != nil {
			return err
		}

		outDir, err := cmd.Flags().GetString("outDir")
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		var csvPath string
		switch what {
		case "prices":
			ticker, err := cmd.Flags().GetString("ticker")
			if err != nil {
				return err
			}

			history, err := app.World.FetchPriceHistory(cmd.Context(), ticker, limit)
			if err != nil {
				return err
			}

			csvPath, err = run.ExportToCsv(outDir, &history, "prices_"+strings.ToUpper(ticker), time.Now())
			if err != nil {
				return err
			}
		case "trades":
			trades, err := app.World.FetchTrades(cmd.Context(), limit)
			if err != nil {
				return err
			}

			csvPath, err = run.ExportToCsv(outDir, &trades, "trades", time.Now())
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown export %q: expected prices or trades", what)
		}

		fmt.Println("CSV file written to: ", csvPath)
		return nil
	},
}

// setup loads env files, logging and config shared by every command.
func setup(cmd *cobra.Command) (*config.Config, error) {
	envDir, err := cmd.Flags().GetString("env-dir")
	if err != nil {
		return nil, err
	}

	if err := utils.InitEnvironmentVariables(envDir); err != nil {
		return nil, err
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, err
	}

	logger.Setup(cfg.Telemetry.JSONLogs, cfg.Telemetry.Enabled)
	return cfg, nil
}

// newApp wires the world for one-shot commands. An in-memory world is
// seeded first so the command has something to act on.
func newApp(cmd *cobra.Command) (*run.App, error) {
	cfg, err := setup(cmd)
	if err != nil {
		return nil, err
	}

	app, err := run.NewApp(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == config.StorageDriverMemory && cmd.Name() != "seed" {
		if _, err := app.Seed(cmd.Context()); err != nil {
			return nil, err
		}
	}

	return app, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file. Defaults apply when empty.")
	rootCmd.PersistentFlags().String("env-dir", ".", "Directory holding .env.development / .env.production.")

	tickCmd.Flags().Int("count", 1, "Number of ticks to run.")
	tickCmd.Flags().Duration("interval", time.Second, "Wall-clock pause between ticks.")

	tradeCmd.Flags().String("ticker", "", "Subject ticker.")
	tradeCmd.Flags().String("action", "", "buy, sell, short or cover.")
	tradeCmd.Flags().Int("quantity", 0, "Shares to open. Ignored when closing.")
	tradeCmd.Flags().String("note", "", "Reasoning recorded on the position.")
	tradeCmd.MarkFlagRequired("ticker")
	tradeCmd.MarkFlagRequired("action")

	reportCmd.Flags().Int("history", 100, "Price points per subject used for statistics.")

	exportCmd.Flags().String("what", "prices", "prices or trades.")
	exportCmd.Flags().String("ticker", "", "Ticker to export prices for.")
	exportCmd.Flags().String("outDir", ".", "The directory to write the output to.")
	exportCmd.Flags().Int("limit", 1000, "Maximum rows to export.")

	rootCmd.AddCommand(serveCmd, seedCmd, tickCmd, tradeCmd, reportCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, models.ErrWorldNotSeeded) {
			log.Error("world is not seeded: run `ward seed` first")
		}
		os.Exit(1)
	}
}

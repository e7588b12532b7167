// Command export writes the PDF report of one monitoring zone to a local directory.
//
//	export -zone 12 -user alice -password secret -out ./reports
//	export -zone 12 -mock
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"carbonsink/internal/api"
	"carbonsink/internal/config"
	"carbonsink/internal/logger"
	"carbonsink/internal/mocks"
	"carbonsink/internal/models"
	"carbonsink/internal/notify"
	"carbonsink/internal/reports"
	"carbonsink/internal/storage"
)

// source is the data one export reads
type source interface {
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
	GetChartData(ctx context.Context, zoneID int64) (*models.ChartData, error)
	GetCurrentPrice(ctx context.Context) (*models.CarbonPrice, error)
}

func main() {
	zoneID := flag.Int64("zone", 0, "zone id to export (required)")
	user := flag.String("user", "", "backend username")
	password := flag.String("password", "", "backend password")
	token := flag.String("token", "", "backend bearer token (instead of -user/-password)")
	out := flag.String("out", "", "output directory (defaults to LOCAL_REPORTS_DIR)")
	mock := flag.Bool("mock", false, "use embedded mock data instead of the backend")
	flag.Parse()

	if *zoneID <= 0 {
		fmt.Fprintln(os.Stderr, "-zone is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *zoneID, *user, *password, *token, *out, *mock); err != nil {
		logger.Error("Export failed", err, logger.Fields{"zone_id": *zoneID})
		os.Exit(1)
	}
}

func run(ctx context.Context, zoneID int64, user, password, token, out string, mock bool) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat, cfg.Environment); err != nil {
		logger.Warn("Invalid logging configuration, keeping defaults", logger.Fields{"error": err.Error()})
	}
	if out == "" {
		out = cfg.LocalReportsDir
	}

	src, err := openSource(ctx, cfg, user, password, token, mock || cfg.MockupMode)
	if err != nil {
		return err
	}

	store, err := storage.NewLocalStorageClient(out)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := notify.NewLogNotifier()

	zone, err := src.GetZone(ctx, zoneID)
	if err != nil {
		notifier.Error("Failed to load zone")
		return err
	}
	data, err := src.GetChartData(ctx, zoneID)
	if err != nil {
		logger.Warn("Chart data unavailable, exporting without measurements", logger.Fields{"error": err.Error()})
		data = &models.ChartData{}
	}

	notifier.Info("Generating PDF report, please wait...")
	result, err := reports.NewExporterFromConfig(cfg, src, store).Export(ctx, zone, data)
	if err != nil {
		notifier.Error("Failed to export PDF report")
		return err
	}
	notifier.Success(fmt.Sprintf("PDF report exported: %s", result.Filename))

	summary, _ := json.MarshalIndent(map[string]interface{}{
		"result": result,
		"file":   filepath.Join(store.BaseDir(), filepath.FromSlash(result.Path)),
	}, "", "  ")
	fmt.Println(string(summary))
	return nil
}

func openSource(ctx context.Context, cfg *config.Config, user, password, token string, mock bool) (source, error) {
	if mock {
		svc, err := mocks.NewService()
		if err != nil {
			return nil, err
		}
		return svc, nil
	}

	client := api.NewClient(cfg.APIBaseURL)
	if token == "" {
		token = cfg.APIToken
	}
	session := api.NewSession(token)

	if user == "" {
		user, password = cfg.APIUsername, cfg.APIPassword
	}
	if !session.Authenticated() {
		if user == "" {
			return nil, fmt.Errorf("credentials required: pass -token or -user/-password")
		}
		if _, err := client.Login(ctx, session, user, password); err != nil {
			return nil, err
		}
	}
	return client.Bind(session), nil
}

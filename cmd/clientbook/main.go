package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clientbook/internal/api"
	"clientbook/internal/config"
	"clientbook/internal/database"
	"clientbook/internal/domain"
	"clientbook/internal/events"
	"clientbook/internal/export"
	"clientbook/internal/google"
	"clientbook/internal/ledger"
	"clientbook/internal/lifecycle"
	"clientbook/internal/logging"
	"clientbook/internal/metrics"
	"clientbook/internal/models"
	"clientbook/internal/notify"
	"clientbook/internal/recurrence"
	"clientbook/internal/repository"
	"clientbook/internal/safety"
	"clientbook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, services, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create exports directory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMonitoring(cfg.Monitoring, &logger)
	}

	paymentLedger := ledger.New(db, &logger)
	if err := paymentLedger.MigrateLegacyFlags(ctx); err != nil {
		logger.Error().Err(err).Msg("legacy flags migration failed")
		return err
	}

	dispatcher := buildNotifications(ctx, cfg, &logger)
	eventBus := events.NewEventBus()

	spawner := recurrence.New(db, &logger)
	spawner.SetQuota(bookingHorizonQuota(cfg.Engine.MaxBookingDays))

	engine := lifecycle.NewEngine(db, paymentLedger, spawner, dispatcher, eventBus, &logger)
	engine.SetSafetyBuffer(cfg.Engine.SafetyBufferMin)
	engine.SetServiceCatalog(services)
	safetyScheduler := safety.NewScheduler(db, dispatcher, eventBus, &logger)

	if mirror := initSheetsMirror(ctx, cfg, &logger); mirror != nil {
		subscribeSheetsMirror(ctx, eventBus, db, mirror, &logger)
	}

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, db, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("api server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	exporter := export.New(db, cfg.Exports.Path, &logger)
	go runDailyExport(ctx, exporter, &logger)

	logger.Info().
		Int("services", len(services)).
		Dur("tick", cfg.Engine.TickInterval()).
		Msg("clientbook started")

	poller := worker.NewPoller(cfg.Engine.TickInterval(), &logger, engine, safetyScheduler)
	poller.Start(ctx)

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.ServiceOffering, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	services, err := loadServiceCatalog(&logger)
	if err != nil {
		return nil, nil, zerolog.Logger{}, closer, err
	}
	return cfg, services, logger, closer, nil
}

func loadServiceCatalog(logger *zerolog.Logger) ([]models.ServiceOffering, error) {
	servicesPath := os.Getenv("SERVICES_PATH")
	if servicesPath == "" {
		servicesPath = "configs/services.yaml"
	}

	data, err := os.ReadFile(servicesPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", servicesPath).Msg("no service catalog, starting without one")
			return nil, nil
		}
		return nil, err
	}

	var catalog struct {
		Services []models.ServiceOffering `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Msg("failed to parse services.yaml")
		return nil, err
	}
	if err := config.ValidateServices(catalog.Services); err != nil {
		logger.Error().Err(err).Msg("service catalog validation failed")
		return nil, err
	}
	return catalog.Services, nil
}

// buildNotifications assembles the sink chain: log sink always, Telegram when
// configured, tag dedup backed by redis with in-memory failover, all behind
// the async dispatcher so the poll loop never blocks on delivery.
func buildNotifications(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *worker.Dispatcher {
	sinks := []domain.Notifier{notify.NewLogNotifier(logger)}

	if cfg.Notifications.Telegram.Enabled {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.Telegram.BotToken)
		if err != nil {
			logger.Error().Err(err).Msg("telegram init failed, continuing without it")
		} else {
			sinks = append(sinks, notify.NewTelegramNotifier(botAPI, cfg.Notifications.Telegram.ChatID))
		}
	}

	var seen domain.SeenStore = repository.NewMemorySeenStore()
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		redisClient := repository.NewRedisClient(cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dedup starts on memory fallback")
		}
		seen = repository.NewFailoverSeenStore(
			repository.NewRedisSeenStore(redisClient),
			repository.NewMemorySeenStore(),
			logger,
		)
	}

	sink := notify.NewDedupNotifier(
		notify.NewMultiNotifier(sinks...),
		seen,
		cfg.Engine.NotifyDedupWindow(),
		logger,
	)

	retry := worker.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Engine.NotifyMaxRetries
	dispatcher := worker.NewDispatcher(sink, cfg.Engine.NotifyQueueSize, retry, logger)
	go dispatcher.Start(ctx)
	return dispatcher
}

// bookingHorizonQuota declines recurrence spawns too far in the future.
func bookingHorizonQuota(maxDays int) recurrence.QuotaFunc {
	if maxDays <= 0 {
		return nil
	}
	return func(_ context.Context, day time.Time) (bool, error) {
		return day.Before(time.Now().AddDate(0, 0, maxDays)), nil
	}
}

func initSheetsMirror(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsMirror {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	mirror, err := google.NewSheetsMirror(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("sheets mirror init failed, continuing without it")
		return nil
	}
	if err := mirror.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets mirror unreachable, continuing without it")
		return nil
	}

	logger.Info().Msg("sheets mirror initialized")
	return mirror
}

// subscribeSheetsMirror keeps the spreadsheet in step with booking events.
// A full rewrite per status event is simpler than tracking row positions and
// cheap at this data size.
func subscribeSheetsMirror(ctx context.Context, bus *events.EventBus, db *database.DB, mirror *google.SheetsMirror, logger *zerolog.Logger) {
	appendHandler := func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		booking, err := db.GetBooking(ctx, payload.BookingID)
		if err != nil {
			logger.Error().Err(err).Str("booking_id", payload.BookingID).Msg("event bus: load booking")
			return nil
		}
		go func() {
			if err := mirror.AppendBooking(ctx, booking); err != nil {
				logger.Error().Err(err).Str("booking_id", booking.ID).Msg("sheets append failed")
			}
		}()
		return nil
	}

	refreshHandler := func(*events.Event) error {
		go func() {
			bookings, err := db.ListBookingsInRange(ctx,
				time.Now().AddDate(0, -1, 0), time.Now().AddDate(0, 3, 0))
			if err != nil {
				logger.Error().Err(err).Msg("sheets refresh: list bookings")
				return
			}
			if err := mirror.ReplaceBookings(ctx, bookings); err != nil {
				logger.Error().Err(err).Msg("sheets refresh failed")
			}
		}()
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, appendHandler)
	bus.Subscribe(events.EventBookingSpawned, appendHandler)
	bus.Subscribe(events.EventBookingConfirmed, refreshHandler)
	bus.Subscribe(events.EventBookingCompleted, refreshHandler)
	bus.Subscribe(events.EventBookingCancelled, refreshHandler)
	bus.Subscribe(events.EventBookingNoShow, refreshHandler)
}

// runDailyExport writes a fresh workbook once a day covering last month
// through the next quarter.
func runDailyExport(ctx context.Context, exporter *export.Exporter, logger *zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now().AddDate(0, -1, 0)
			end := time.Now().AddDate(0, 3, 0)
			if _, err := exporter.WriteRange(ctx, start, end); err != nil {
				logger.Error().Err(err).Msg("daily export failed")
			}
		}
	}
}

func startMonitoring(cfg config.MonitoringConfig, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.PrometheusPort)

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics listener started")
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics listener error")
		}
	}()
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raidcall/internal/config"
	"raidcall/internal/database"
	"raidcall/internal/handlers"
	"raidcall/internal/notify"
	"raidcall/internal/repository"
	"raidcall/internal/service"
	"raidcall/internal/wizard"
)

func main() {
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	loc, err := time.LoadLocation(cfg.RaidTimezone)
	if err != nil {
		log.Fatalf("Invalid RAID_TIMEZONE %q: %v", cfg.RaidTimezone, err)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		log.Fatalf("Failed to build notifier: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	raidRepo := repository.NewRaidRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	pinRepo := repository.NewPinRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	// Services
	raidService := service.NewRaidService(raidRepo, participationRepo, reminderRepo, pinRepo, userRepo)
	pinService := service.NewPinService(raidRepo, pinRepo, userRepo, locationRepo, notifier, loc)
	broadcastService := service.NewBroadcastService(userRepo, notifier)
	scheduler := service.NewScheduler(raidRepo, participationRepo, reminderRepo, notifier, loc, cfg.SchedulerInterval)

	// Wizard flows and the update router
	router := handlers.NewRouter(
		wizard.NewStore(),
		&wizard.CreateFlow{Squads: userRepo, Raids: raidService, Loc: loc, Now: time.Now},
		&wizard.PinFlow{Raids: raidService, Sender: pinService, Loc: loc},
		&wizard.BroadcastFlow{Squads: userRepo, Sender: broadcastService},
		&wizard.DeleteFlow{Raids: raidService, Loc: loc},
		raidService,
		pinService,
		cfg.AdminIDs,
		loc,
	)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handlers.NewUpdateServer(router, cfg.GatewaySecret).Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- scheduler.Run(ctx)
	}()

	go func() {
		log.Printf("Update server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Update server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down...")
	case err := <-schedulerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Scheduler exited: %v", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Update server shutdown: %v", err)
	}
}

// buildNotifier picks the delivery channel: the bot gateway when configured,
// SES email otherwise (which itself degrades to a logging no-op without a
// from address).
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.GatewayURL != "" {
		log.Printf("Using gateway notifier at %s", cfg.GatewayURL)
		return notify.NewWebhookNotifier(cfg.GatewayURL, cfg.GatewaySecret), nil
	}
	ses, err := notify.NewSESNotifier(context.Background(), cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		return nil, err
	}
	return ses, nil
}

// CareLink API server. main wires stores, services, the event bus, and the
// HTTP router; business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	caregiverhandler "carelink/internal/caregiver/handler"
	caregiverservice "carelink/internal/caregiver/service"
	caregiverstore "carelink/internal/caregiver/store"
	clienthandler "carelink/internal/client/handler"
	clientservice "carelink/internal/client/service"
	clientstore "carelink/internal/client/store"
	"carelink/internal/events"
	"carelink/internal/jwtauth"
	messaginghandler "carelink/internal/messaging/handler"
	messagingservice "carelink/internal/messaging/service"
	messagingstore "carelink/internal/messaging/store"
	notificationhandler "carelink/internal/notification/handler"
	"carelink/internal/notification/realtime"
	notificationservice "carelink/internal/notification/service"
	notificationstore "carelink/internal/notification/store"
	"carelink/internal/platform/config"
	"carelink/internal/platform/httpserver"
	"carelink/internal/platform/logger"
	"carelink/internal/platform/metrics"
	"carelink/internal/platform/postgres"
	platformredis "carelink/internal/platform/redis"
	referralhandler "carelink/internal/referral/handler"
	referralservice "carelink/internal/referral/service"
	referralstore "carelink/internal/referral/store"
	httptransport "carelink/internal/transport/http"
	userhandler "carelink/internal/user/handler"
	userservice "carelink/internal/user/service"
	userstore "carelink/internal/user/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Info("redis not configured, realtime push disabled")
	}

	var (
		users         userservice.Store
		clients       clientservice.Store
		caregivers    caregiverservice.Store
		referrals     referralservice.Store
		notifications notificationservice.Store
		messages      messagingservice.Store
	)
	if db != nil {
		users = userstore.NewPostgres(db)
		clients = clientstore.NewPostgres(db)
		caregivers = caregiverstore.NewPostgres(db)
		referrals = referralstore.NewPostgres(db)
		notifications = notificationstore.NewPostgres(db)
		messages = messagingstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = userstore.NewMemory()
		clients = clientstore.NewMemory()
		caregivers = caregiverstore.NewMemory()
		referrals = referralstore.NewMemory()
		notifications = notificationstore.NewMemory()
		messages = messagingstore.NewMemory()
	}

	m := metrics.New()
	tokens := jwtauth.NewService(cfg.JWTSigningKey)
	publisher := realtime.NewPublisher(redisClient, log)

	userSvc := userservice.New(users, tokens, userservice.WithLogger(log))
	notificationSvc := notificationservice.New(notifications, userSvc,
		notificationservice.WithLogger(log),
		notificationservice.WithMetrics(m),
		notificationservice.WithPusher(publisher),
		notificationservice.WithRecipientSource(userSvc),
	)

	kafkaPub, err := events.NewKafkaPublisher(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka producer setup failed", "error", err)
		os.Exit(1)
	}
	var emitter events.Emitter
	if kafkaPub != nil {
		defer kafkaPub.Close()
		emitter = kafkaPub
	} else {
		log.Info("kafka not configured, delivering events in process")
		emitter = events.NewInProcess(notificationSvc.HandleEvent, log)
	}

	clientSvc := clientservice.New(clients,
		clientservice.WithLogger(log),
		clientservice.WithMetrics(m),
		clientservice.WithEmitter(emitter),
		clientservice.WithCaregiverReader(caregivers),
		clientservice.WithReferralReader(referrals),
	)
	caregiverSvc := caregiverservice.New(caregivers,
		caregiverservice.WithLogger(log),
		caregiverservice.WithMetrics(m),
	)
	referralSvc := referralservice.New(referrals, clients,
		referralservice.WithLogger(log),
		referralservice.WithMetrics(m),
		referralservice.WithEmitter(emitter),
	)
	messagingSvc := messagingservice.New(messages, userSvc,
		messagingservice.WithLogger(log),
		messagingservice.WithMetrics(m),
		messagingservice.WithNotifier(notificationSvc),
	)

	router := httptransport.NewRouter(httptransport.Handlers{
		Users:         userhandler.New(userSvc, log),
		Clients:       clienthandler.New(clientSvc, log),
		Caregivers:    caregiverhandler.New(caregiverSvc, log),
		Referrals:     referralhandler.New(referralSvc, log),
		Notifications: notificationhandler.New(notificationSvc, publisher, log),
		Messages:      messaginghandler.New(messagingSvc, log),
	}, tokens, m, log)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("carelink server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	worker, err := events.NewWorker(cfg.Kafka, notificationSvc.HandleEvent, log)
	if err != nil {
		log.Error("kafka consumer setup failed", "error", err)
		os.Exit(1)
	}
	if worker != nil {
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

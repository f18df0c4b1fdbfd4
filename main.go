package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"city-samadhan/assistant"
	"city-samadhan/auth"
	"city-samadhan/config"
	"city-samadhan/cronjobs"
	"city-samadhan/db"
	"city-samadhan/events"
	"city-samadhan/feed"
	"city-samadhan/geocode"
	"city-samadhan/handlers"
	"city-samadhan/logger"
	"city-samadhan/media"
	"city-samadhan/report"
	"city-samadhan/routes"
	"city-samadhan/upload"

	firebase "firebase.google.com/go"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
)

func main() {
	cfg := config.Load()
	log := logger.New("city-samadhan", cfg.LogLevel)

	ctx := context.Background()

	if cfg.FirebaseCredentials == "" {
		log.Fatal("FIREBASE_CREDENTIALS environment variable is required")
	}
	app, err := db.InitApp(ctx, cfg.FirebaseCredentials, cfg.FirebaseStorageBucket)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Firebase")
	}

	firestoreClient, err := db.InitFirestore(ctx, app)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Firestore")
	}
	defer firestoreClient.Close()

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Firebase Auth")
	}

	store, err := newObjectStore(ctx, cfg, app)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize object storage")
	}
	log.WithField("backend", cfg.StorageBackend).Info("Object storage ready")

	var geocoder geocode.ReverseGeocoder
	if cfg.MapsAPIKey != "" {
		mapsClient, err := geocode.NewMapsClient(cfg.MapsAPIKey)
		if err != nil {
			log.WithError(err).Fatal("Failed to create maps client")
		}
		geocoder = geocode.NewMapsGeocoder(mapsClient)
	} else {
		log.Warn("MAPS_CREDENTIALS not set, addresses will be Unknown")
	}
	resolver := geocode.NewResolver(geocoder, cfg.LocationTimeout, log)

	stager, err := media.NewStager(cfg.MediaDir, cfg.MaxMediaBytes, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare media staging")
	}

	gateway := upload.NewGateway(store, cfg.UploadTimeout, cfg.UploadConcurrency, log)
	reports := db.NewReports(firestoreClient, cfg.ReportsCollection)
	orphans := db.NewOrphans(firestoreClient)

	opts := []report.Option{
		report.WithOrphanJournal(orphans),
		report.WithPersistTimeout(cfg.PersistTimeout),
	}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, log)
		if err != nil {
			// submissions do not depend on the broker
			log.WithError(err).Warn("Event publisher unavailable, continuing without events")
		} else {
			defer publisher.Close()
			opts = append(opts, report.WithEventPublisher(publisher))
		}
	}
	submitter := report.NewSubmitter(auth.ContextIdentity{}, gateway, reports, log, opts...)
	drafts := report.NewRegistry(submitter, stager, log)

	var guard report.Guard = report.NewMemoryGuard()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		guard = report.NewRedisGuard(rdb, cfg.SubmitGuardTTL(report.MaxImages), log)
	}

	var completer assistant.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = openai.NewClient(cfg.OpenAIAPIKey)
	}

	scheduler, err := cronjobs.InitCronJobs(
		cronjobs.NewOrphanSweeper(orphans, reports, store, log),
		drafts,
		cronjobs.Schedules{
			OrphanSweep: cfg.OrphanSweepSchedule,
			DraftSweep:  cfg.DraftSweepSchedule,
			DraftTTL:    cfg.DraftTTL,
		},
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule background jobs")
	}

	h := handlers.New(handlers.Deps{
		Reports:   reports,
		Drafts:    drafts,
		Submitter: submitter,
		Guard:     guard,
		Stager:    stager,
		Locations: resolver,
		Feed:      feed.NewSubscriber(reports, log),
		Assistant: assistant.New(completer, cfg.OpenAIModel, log),
		Log:       log,
	})
	router := routes.SetupRouter(h, auth.Middleware(authClient, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("Server exited")
}

func newObjectStore(ctx context.Context, cfg *config.Config, app *firebase.App) (upload.Store, error) {
	switch cfg.StorageBackend {
	case "minio":
		return upload.NewMinioStore(ctx, upload.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	case "firebase", "":
		if cfg.FirebaseStorageBucket == "" {
			return nil, errors.New("FIREBASE_STORAGE_BUCKET is required for the firebase storage backend")
		}
		return upload.NewFirebaseStore(ctx, app, cfg.FirebaseStorageBucket)
	default:
		return nil, errors.New("unknown STORAGE_BACKEND " + cfg.StorageBackend)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bikeToWorkAPI/handlers"
	"bikeToWorkAPI/internal/config"
	"bikeToWorkAPI/internal/errtrack"
	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/photostore"
	"bikeToWorkAPI/internal/schema"
	"bikeToWorkAPI/internal/statscache"
	"bikeToWorkAPI/internal/workers"
	"bikeToWorkAPI/middleware"
	"bikeToWorkAPI/services"

	_ "net/http/pprof"
)

var (
	cfg                 config.Config
	dbPool              *pgxpool.Pool
	photoStore          services.PhotoStore
	gcsStore            *photostore.GCSStore
	userService         *services.UserService
	statsService        *services.StatsService
	rideService         *services.RideService
	achievementService  *services.AchievementService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if err := errtrack.Init(errtrack.Config{DSN: cfg.SentryDSN, Environment: cfg.Environment}); err != nil {
		log.Printf("Warning: Could not initialize error tracking: %v", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	if err := schema.Apply(ctx, dbPool); err != nil {
		log.Fatal("Failed to apply database schema:", err)
	}

	statsOpts := cfg.StatsOptions()
	rideRepo := services.NewRideRepository(dbPool, cfg.Calendar())

	notificationService = services.NewNotificationService(dbPool)
	userService = services.NewUserService(dbPool)
	statsService = services.NewStatsService(rideRepo, userService, statscache.New(statsOpts))
	achievementService = services.NewAchievementService(dbPool, userService, statsService, notificationService)
	challengeService = services.NewChallengeService(dbPool, userService, rideRepo, notificationService, statsOpts)

	fcmService, err := notification.NewFCMService(ctx, cfg.FCMServiceAccountJSON, cfg.FCMCredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM, push notifications will only be logged: %v", err)
		notificationService.SetPushProvider(services.LogPushProvider{})
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	photoStore = photostore.Unconfigured{}
	if cfg.PhotoBucket != "" {
		gcsStore, err = photostore.NewGCSStore(ctx, cfg.PhotoBucket, cfg.AssetsBaseURL)
		if err != nil {
			log.Printf("Warning: Could not initialize photo storage: %v", err)
		} else {
			photoStore = gcsStore
			log.Printf("Photo storage using bucket %s", cfg.PhotoBucket)
		}
	} else {
		log.Println("PHOTO_BUCKET not set, ride submissions will be rejected")
	}

	rideService = services.NewRideService(dbPool, services.RideServiceDeps{
		Repo:          rideRepo,
		Photos:        photoStore,
		Users:         userService,
		Stats:         statsService,
		Achievements:  achievementService,
		Notifier:      notificationService,
		Calendar:      cfg.Calendar(),
		PointsPerRide: cfg.PointsPerRide,
	})

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	userHandler := handlers.NewUserHandler(userService)
	rideHandler := handlers.NewRideHandler(rideService)
	statsHandler := handlers.NewStatsHandler(statsService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret)

	limiter := middleware.NewIPRateLimiter(5, 30)
	go limiter.Cleanup(rootCtx)

	resolverDone := workers.StartChallengeResolver(rootCtx, challengeService, cfg.ChallengeResolveEvery)

	r := mux.NewRouter()
	r.Use(errtrack.Middleware)
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "bikeToWork-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/users/opponents", userHandler.ListOpponents).Methods("GET")
	protected.HandleFunc("/ranking", userHandler.GetRanking).Methods("GET")

	protected.HandleFunc("/rides", rideHandler.GetUserRides).Methods("GET")
	protected.HandleFunc("/rides", rideHandler.SubmitRide).Methods("POST")
	protected.HandleFunc("/rides/verification-queue", rideHandler.GetVerificationQueue).Methods("GET")
	protected.HandleFunc("/rides/{id}/verify", rideHandler.VerifyRide).Methods("POST")
	protected.HandleFunc("/rides/{id}", rideHandler.DeleteRide).Methods("DELETE")

	protected.HandleFunc("/stats", statsHandler.GetUserStats).Methods("GET")
	protected.HandleFunc("/stats/series", statsHandler.GetSeries).Methods("GET")
	protected.HandleFunc("/stats/calendar", statsHandler.GetCalendar).Methods("GET")

	protected.HandleFunc("/achievements", achievementHandler.GetAchievements).Methods("GET")

	protected.HandleFunc("/challenges", challengeHandler.GetUserChallenges).Methods("GET")
	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}/respond", challengeHandler.RespondToChallenge).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Accept-Language", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	stopBackground()
	<-resolverDone
	notificationService.Stop()
	if gcsStore != nil {
		if err := gcsStore.Close(); err != nil {
			log.Printf("Photo storage close error: %v", err)
		}
	}

	errtrack.Flush(2 * time.Second)
	log.Println("Server shutdown complete")
}

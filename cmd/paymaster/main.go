package main

import (
	"context"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/internal/credits"
	"github.com/thisyearnofear/VOISSS-sub003/internal/handlers"
	"github.com/thisyearnofear/VOISSS-sub003/internal/payments"
	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
	"github.com/thisyearnofear/VOISSS-sub003/internal/usage"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/auth"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/clients/facilitator"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/config"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/database"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/kafka"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/monitoring"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/redis"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/server"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/version"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("paymaster")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Paymaster (Payment Router)")

	payTo := config.RequireEnv("PAYMASTER_PAY_TO")

	network, err := x402.Network(
		config.GetEnv("PAYMASTER_NETWORK", "base"),
		config.GetEnvBool("X402_INCLUDE_TESTNETS", false),
	)
	if err != nil {
		logger.WithError(err).Fatal("Unknown payment network")
	}

	// Optional Postgres: credit ledger + idempotency store
	var creditStore credits.Store
	var idemStore handlers.IdempotencyStore
	var db database.PostgresConn
	if dbURL := config.GetEnv("DATABASE_URL", ""); dbURL != "" {
		dbConfig := database.DefaultConfig()
		dbConfig.URL = dbURL
		db = database.MustConnect(dbConfig, logger)
		defer db.Close()
		creditStore = credits.NewPostgresStore(db, logger)
		idemStore = handlers.NewPostgresIdempotencyStore(db, logger)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory credit ledger (balances reset on restart)")
		creditStore = credits.NewMemoryStore()
		idemStore = handlers.NewMemoryIdempotencyStore()
	}

	// Optional Redis: durable usage counters with in-process failover
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var usageTracker usage.Tracker
	redisClient, err := redis.NewClientFromEnv(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Redis connection failed")
	}
	if redisClient != nil {
		defer redisClient.Close()
		usageTracker = usage.NewFailoverTracker(
			usage.NewRedisTracker(redisClient, time.Now),
			usage.NewMemoryTracker(time.Now),
			logger,
		)
	} else {
		logger.Warn("Redis not configured, using in-process usage counters (quotas are per-instance)")
		usageTracker = usage.NewMemoryTracker(time.Now)
	}

	facilitatorURL := config.GetEnv("PAYMASTER_FACILITATOR_URL", network.FacilitatorURL)

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("paymaster", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("paymaster", version.Version, version.GitCommit)

	if db != nil {
		healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	}
	if redisClient != nil {
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisClient))
	}
	healthChecker.AddCheck("facilitator", monitoring.HTTPServiceHealthCheck("facilitator", facilitatorURL+"/supported"))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"PAYMASTER_PAY_TO": payTo,
	}))

	// Create payment metrics
	metrics := &handlers.PaymasterMetrics{
		PaymentAttempts:  metricsCollector.NewCounter("payment_attempts_total", "Payment settlement attempts", []string{"method", "status"}),
		QuoteRequests:    metricsCollector.NewCounter("quote_requests_total", "Quote requests served", []string{"service", "recommended"}),
		FacilitatorCalls: metricsCollector.NewCounter("facilitator_calls_total", "Facilitator verify/settle calls", []string{"operation"}),
		CreditDeposits:   metricsCollector.NewCounter("credit_deposits_total", "Credit top-ups", []string{"status"}),
	}
	metrics.DBQueries, metrics.DBDuration, metrics.DBConnections = metricsCollector.CreateDatabaseMetrics()

	// Facilitator client
	facilitatorClient := facilitator.NewClient(facilitator.Config{
		BaseURL: facilitatorURL,
		Logger:  logger,
	})

	// On-chain balance reader for tier resolution
	var tierResolver *tier.Resolver
	if tokenContract := config.GetEnv("VOISSS_TOKEN_CONTRACT", ""); tokenContract != "" {
		endpoints := config.GetEnvSlice("TIER_RPC_ENDPOINTS", []string{network.RPCEndpoint()})
		reader, err := tier.NewRPCBalanceReader(tier.RPCBalanceReaderConfig{
			Endpoints:     endpoints,
			TokenContract: tokenContract,
			Logger:        logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("Balance reader setup failed")
		}
		tierResolver = tier.NewResolver(reader, logger)
	} else {
		logger.Warn("VOISSS_TOKEN_CONTRACT not set, all addresses resolve to tier none")
		tierResolver = tier.NewResolver(nil, logger)
	}

	// Best-effort payment event producer
	var producer *kafka.Producer
	if brokers := config.GetEnvSlice("PAYMENT_EVENTS_BROKERS", nil); len(brokers) > 0 {
		producer, err = kafka.NewProducer(brokers, "paymaster", logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka producer setup failed, payment events disabled")
		} else {
			defer producer.Close()
			healthChecker.AddCheck("kafka", monitoring.KafkaProducerHealthCheck(producer))
		}
	}

	// x402 requirements builder
	builder, err := x402.NewBuilder(network, payTo, logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid PAYMASTER_PAY_TO address")
	}

	// Payment router
	router, err := payments.NewRouter(payments.Config{
		Calculator:  pricing.NewCalculator(pricing.NewWhitelist(config.GetEnvSlice("PAYMENT_WHITELIST", nil))),
		Tiers:       tierResolver,
		Usage:       usageTracker,
		Credits:     creditStore,
		Facilitator: facilitatorClient,
		Builder:     builder,
		Producer:    producer,
		PayTo:       payTo,
		Preference:  payments.Preference(config.GetEnv("PAYMENT_PREFERENCE", string(payments.PreferCreditsFirst))),
		Logger:      logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Payment router setup failed")
	}

	// Initialize handlers
	handlers.Init(handlers.Deps{
		Logger:      logger,
		Metrics:     metrics,
		Router:      router,
		Credits:     creditStore,
		Usage:       usageTracker,
		Tiers:       tierResolver,
		Idempotency: idemStore,
		Producer:    producer,
		Network:     network,
	})

	// Start background maintenance jobs
	jobManager := handlers.NewJobManager(idemStore, logger)
	jobManager.Start(ctx)
	defer jobManager.Stop()

	// Setup router with unified monitoring
	engine := server.SetupServiceRouter(logger, "paymaster", healthChecker, metricsCollector)

	serviceToken := config.GetEnv("SERVICE_TOKEN", "")
	jwtSecret := config.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set - session tokens will be rejected on account routes")
	}
	walletAuthRequired := config.GetEnvBool("WALLET_AUTH_REQUIRED", false)

	// API routes (root level - the platform gateway adds the /api/payments prefix)
	{
		// Open payment surface
		engine.GET("/quote", handlers.GetQuote)
		engine.GET("/requirements", handlers.GetRequirements)

		pay := engine.Group("")
		pay.Use(auth.WalletProofMiddleware(walletAuthRequired))
		{
			pay.POST("/process", handlers.ProcessPayment)
		}

		// Account view (platform session or service token)
		accounts := engine.Group("")
		accounts.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
		{
			accounts.GET("/accounts/:address", handlers.GetAccount)
		}

		// Service-to-service endpoints
		serviceAPI := engine.Group("")
		serviceAPI.Use(auth.ServiceAuthMiddleware(serviceToken))
		{
			serviceAPI.POST("/accounts/:address/deposit", handlers.Deposit)
			serviceAPI.GET("/usage/:address", handlers.GetUsage)
		}
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("paymaster", "9402")
	if err := server.Start(serverConfig, engine, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

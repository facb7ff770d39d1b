package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/techmall/storefront-api/internal/di"
	domain "github.com/techmall/storefront-api/internal/domain"
	"github.com/techmall/storefront-api/internal/handlers"
	"github.com/techmall/storefront-api/internal/notify"
	"github.com/techmall/storefront-api/internal/payments"
	"github.com/techmall/storefront-api/internal/platform/auth"
	"github.com/techmall/storefront-api/internal/platform/config"
	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
	"github.com/techmall/storefront-api/internal/platform/idempotency"
	"github.com/techmall/storefront-api/internal/platform/jobs"
	pmongo "github.com/techmall/storefront-api/internal/platform/mongo"
	"github.com/techmall/storefront-api/internal/platform/observability"
	"github.com/techmall/storefront-api/internal/platform/requestctx"
	"github.com/techmall/storefront-api/internal/platform/secrets"
	"github.com/techmall/storefront-api/internal/repositories"
	firestoreRepo "github.com/techmall/storefront-api/internal/repositories/firestore"
	"github.com/techmall/storefront-api/internal/repositories/memory"
	mongoRepo "github.com/techmall/storefront-api/internal/repositories/mongo"
	"github.com/techmall/storefront-api/internal/repositories/rediscache"
	"github.com/techmall/storefront-api/internal/services"
)

const (
	pubsubEmulatorEnv = "PUBSUB_EMULATOR_HOST"
	readinessTimeout  = 2 * time.Second
	mailSendTimeout   = 10 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = requestctx.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.registry.Close(closeCtx); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()
	registry := store.registry

	checks := []repositories.DependencyCheck{{
		Name:    cfg.Store.Driver,
		Timeout: readinessTimeout,
		Check:   store.registry.Ping,
	}}

	var redisClient *redis.Client
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		cartCache, err := rediscache.NewCartCache(registry.Carts(), redisClient,
			rediscache.WithTTL(cfg.Redis.CartTTL),
			rediscache.WithLogger(rediscache.Logger(observability.NewEventLogger(logger, "cart-cache"))),
		)
		if err != nil {
			logger.Fatal("failed to initialise cart cache", zap.Error(err))
		}
		registry = cachedRegistry{Registry: registry, carts: cartCache}
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: readinessTimeout,
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	authenticator, err := newAuthenticator(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.String("mode", cfg.Auth.Mode), zap.Error(err))
	}

	paymentManager, err := newPaymentManager(cfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to initialise payment gateways", zap.Error(err))
	}

	mailer, closeMailer, err := newMailer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise mail transport", zap.String("transport", cfg.Notifications.Transport), zap.Error(err))
	}
	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{
		Mailer:      mailer,
		Workers:     cfg.Notifications.Workers,
		QueueSize:   cfg.Notifications.QueueSize,
		SendTimeout: mailSendTimeout,
		Logger:      observability.NewEventLogger(logger, "mail"),
		Observe:     metrics.ObserveNotification,
	})
	if err != nil {
		logger.Fatal("failed to initialise mail dispatcher", zap.Error(err))
	}
	renderer, err := notify.NewRenderer(cfg.Notifications.Sender, cfg.Shipping.TrackingURLBase)
	if err != nil {
		logger.Fatal("failed to initialise mail templates", zap.Error(err))
	}
	notifier, err := notify.NewOrderNotifier(renderer, dispatcher, observability.NewEventLogger(logger, "notify"))
	if err != nil {
		logger.Fatal("failed to initialise order notifier", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Collaborators{
		Payments:        paymentManager,
		Notifier:        notifier,
		Logger:          services.Logger(observability.NewEventLogger(logger, "services")),
		ObserveCheckout: metrics.ObserveCheckout,
	})
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	svc := container.Services

	idempotencyStore := newIdempotencyStore(store, redisClient)
	idempotencyLogger := idempotency.Logger(observability.NewEventLogger(logger, "idempotency"))
	checkoutIdempotency := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(idempotencyLogger),
	)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	var sweeperWG sync.WaitGroup
	sweeperWG.Add(1)
	go func() {
		defer sweeperWG.Done()
		idempotency.RunSweeper(sweeperCtx, idempotencyStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, idempotencyLogger)
	}()

	probe, err := repositories.NewReadinessProbe(checks, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise readiness probe", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(probe,
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithHealthVersion(strings.TrimSpace(envValues["API_BUILD_VERSION"])),
	)
	productHandlers := handlers.NewProductHandlers(authenticator, svc.Catalog)
	cartHandlers := handlers.NewCartHandlers(authenticator, svc.Cart)
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Checkout, svc.Orders, svc.Stats,
		handlers.WithCheckoutIdempotency(checkoutIdempotency),
	)
	wishlistHandlers := handlers.NewWishlistHandlers(authenticator, svc.Wishlist)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger),
		observability.TraceMiddleware(traceProjectID(cfg)),
		observability.RecoveryMiddleware(logger),
		observability.RequestLoggerMiddleware(metrics),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMetricsHandler(metrics.Handler()),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithWishlistRoutes(wishlistHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
	go func() {
		serverLogger.Info("techmall storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	stopSweeper()
	sweeperWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	// Queued emails are flushed after the last request has been served.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("mail dispatcher drain incomplete", zap.Error(err))
	}
	if closeMailer != nil {
		if err := closeMailer(); err != nil {
			logger.Warn("mail transport close error", zap.Error(err))
		}
	}
}

// storeHandle keeps the concrete backend next to its registry so the idempotency store can
// share the connection.
type storeHandle struct {
	registry  repositories.Registry
	firestore *pfirestore.Provider
}

func openStore(ctx context.Context, cfg config.Config) (storeHandle, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverFirestore:
		var opts []pfirestore.ProviderOption
		if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
			opts = append(opts, pfirestore.WithClientOptions(option.WithCredentialsFile(file)))
		}
		provider := pfirestore.NewProvider(cfg.Firestore, opts...)
		if _, err := provider.Client(ctx); err != nil {
			return storeHandle{}, err
		}
		reg, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			return storeHandle{}, err
		}
		return storeHandle{registry: reg, firestore: provider}, nil
	case config.StoreDriverMongo:
		db, err := pmongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return storeHandle{}, err
		}
		reg, err := mongoRepo.NewRegistry(db)
		if err != nil {
			return storeHandle{}, err
		}
		if err := reg.EnsureIndexes(ctx); err != nil {
			_ = reg.Close(ctx)
			return storeHandle{}, fmt.Errorf("ensure indexes: %w", err)
		}
		return storeHandle{registry: reg}, nil
	case config.StoreDriverMemory:
		return storeHandle{registry: memory.NewRegistry()}, nil
	default:
		return storeHandle{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// cachedRegistry swaps in the Redis-backed cart repository.
type cachedRegistry struct {
	repositories.Registry
	carts repositories.CartRepository
}

func (r cachedRegistry) Carts() repositories.CartRepository { return r.carts }

func newIdempotencyStore(store storeHandle, redisClient *redis.Client) idempotency.Store {
	switch {
	case store.firestore != nil:
		return idempotency.NewFirestoreStore(store.firestore, "")
	case redisClient != nil:
		return idempotency.NewRedisStore(redisClient)
	default:
		return idempotency.NewMemoryStore()
	}
}

func newAuthenticator(ctx context.Context, cfg config.Config) (*auth.Authenticator, error) {
	var verifier auth.TokenVerifier
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		firebase, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		verifier = firebase
	case config.AuthModeJWT:
		var opts []auth.JWTOption
		if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
			opts = append(opts, auth.WithHMACSecret(secret))
		}
		if url := strings.TrimSpace(cfg.Auth.JWKSURL); url != "" {
			opts = append(opts, auth.WithJWKSURL(url, &http.Client{Timeout: 5 * time.Second}))
		}
		if cfg.Auth.Issuer != "" {
			opts = append(opts, auth.WithExpectedIssuer(cfg.Auth.Issuer))
		}
		if cfg.Auth.Audience != "" {
			opts = append(opts, auth.WithExpectedAudience(cfg.Auth.Audience))
		}
		jwtVerifier, err := auth.NewJWTVerifier(opts...)
		if err != nil {
			return nil, err
		}
		verifier = jwtVerifier
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
	return auth.NewAuthenticator(verifier,
		auth.WithRoleClaim(cfg.Auth.RoleClaim),
		auth.WithFallbackRole(auth.RoleCustomer),
		auth.WithVerificationTimeout(5*time.Second),
	), nil
}

func newPaymentManager(cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*payments.Manager, error) {
	breakerLogger := logger.Named("payments")
	guard := func(gw payments.Gateway) (payments.Gateway, error) {
		if cfg.Payments.BreakerFailures <= 0 {
			return gw, nil
		}
		return payments.NewBreakerGateway(gw, payments.BreakerConfig{
			Failures: uint32(cfg.Payments.BreakerFailures),
			Cooldown: cfg.Payments.BreakerCooldown,
			OnStateChange: func(gateway, from, to string) {
				breakerLogger.Warn("payment gateway circuit changed",
					zap.String("gateway", gateway), zap.String("from", from), zap.String("to", to))
			},
		})
	}

	wallet, err := payments.NewWalletGateway(payments.WalletGatewayConfig{
		Latency:     cfg.Payments.WalletLatency,
		SuccessRate: cfg.Payments.WalletSuccessRate,
		Logger:      payments.WalletLogger(observability.NewEventLogger(logger, "payments")),
	})
	if err != nil {
		return nil, err
	}
	walletGateway, err := guard(wallet)
	if err != nil {
		return nil, err
	}
	gateways := map[domain.PaymentMethod]payments.Gateway{
		domain.PaymentMethodJazzCash:  walletGateway,
		domain.PaymentMethodEasypaisa: walletGateway,
	}
	if key := strings.TrimSpace(cfg.Payments.StripeAPIKey); key != "" {
		stripeGateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
			APIKey: key,
			Logger: payments.StripeLogger(observability.NewEventLogger(logger, "payments")),
		})
		if err != nil {
			return nil, err
		}
		cardGateway, err := guard(stripeGateway)
		if err != nil {
			return nil, err
		}
		gateways[domain.PaymentMethodCard] = cardGateway
	} else {
		logger.Warn("stripe api key not configured; card payments disabled")
	}
	return payments.NewManager(gateways,
		payments.WithTimeout(cfg.Payments.Timeout),
		payments.WithObserver(metrics.ObservePayment),
	)
}

// newMailer returns the configured transport and an optional release func.
func newMailer(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Mailer, func() error, error) {
	switch cfg.Notifications.Transport {
	case config.NotifyTransportLog:
		return notify.LogMailer{Logger: observability.NewEventLogger(logger, "mail")}, nil, nil
	case config.NotifyTransportPubSub:
		client, err := newPubSubClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		topic := client.Topic(cfg.PubSub.MailTopic)
		publisher, err := jobs.NewPubSubMailPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return publisher, func() error {
			topic.Stop()
			return client.Close()
		}, nil
	case config.NotifyTransportKafka:
		publisher, err := jobs.NewKafkaMailPublisher(cfg.Kafka.Brokers, cfg.Kafka.MailTopic)
		if err != nil {
			return nil, nil, err
		}
		return publisher, publisher.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification transport %q", cfg.Notifications.Transport)
	}
}

func newPubSubClient(ctx context.Context, cfg config.Config) (*pubsub.Client, error) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(cfg.Firebase.ProjectID)
	}
	if projectID == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	var opts []option.ClientOption
	host := strings.TrimSpace(cfg.PubSub.EmulatorHost)
	if host == "" {
		host = strings.TrimSpace(os.Getenv(pubsubEmulatorEnv))
	}
	if host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	} else if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	project := lookup("API_SECRET_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
		secrets.WithMeter(otel.Meter("github.com/techmall/storefront-api/secrets")),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if file := lookup("API_FIREBASE_CREDENTIALS_FILE"); file != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(file)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secret-backed fields whose environment variable is set, so a
// reference that fails to resolve stops startup instead of silently disabling the feature.
func requiredSecretNames(env map[string]string) []string {
	fields := map[string]string{
		"API_PAYMENT_STRIPE_API_KEY": "Payments.StripeAPIKey",
		"API_AUTH_JWT_SECRET":        "Auth.JWTSecret",
		"API_MONGO_URI":              "Mongo.URI",
		"API_REDIS_PASSWORD":         "Redis.Password",
	}
	required := make([]string, 0, len(fields))
	for key, name := range fields {
		if strings.TrimSpace(env[key]) != "" {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fancystore/auth"
	"fancystore/cart"
	"fancystore/checkout"
	"fancystore/config"
	"fancystore/db"
	"fancystore/filemgr"
	"fancystore/middleware"
	"fancystore/orders"
	"fancystore/pay"
	"fancystore/products"
	"fancystore/rdx"
	"fancystore/routes"
	"fancystore/stockfeed"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	boot := logrus.New()
	cfg, err := config.Load(boot)
	if err != nil {
		boot.Fatalf("❌ Config error: %v", err)
	}
	logger := cfg.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		cancel()
		logger.Fatalf("❌ MongoDB connection failed: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("index creation failed")
	}

	// Redis is optional; without it locks, cache and token revocation are
	// process-local.
	var (
		locker   rdx.Locker   = rdx.NewLocalLocker()
		cache    rdx.Cache    = rdx.NopCache{}
		denylist rdx.Denylist = rdx.NewLocalDenylist()
	)
	if cfg.RedisAddr != "" {
		client, err := rdx.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cancel()
			logger.Fatalf("❌ Redis connection failed: %v", err)
		}
		defer client.Close()
		locker = rdx.NewRedisLocker(client)
		cache = rdx.NewRedisCache(client)
		denylist = rdx.NewRedisDenylist(client)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis")
	} else {
		logger.Warn("REDIS_ADDR not set; using in-process locks and no product cache")
	}

	hub := stockfeed.NewHub(logger)
	go hub.Run()

	secret := []byte(cfg.JWTSecret)
	authSvc := auth.NewService(auth.NewMongoRepository(store.UserCollection), denylist, auth.Options{
		Secret:   secret,
		TokenTTL: cfg.TokenTTL,
		CheckMX:  cfg.EmailCheckMX,
	}, logger)
	if err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.WithError(err).Error("admin seed failed")
	}
	cancel()

	productRepo := products.NewMongoRepository(store.ProductCollection)
	orderRepo := orders.NewMongoRepository(store.OrderCollection)
	productSvc := products.NewService(productRepo, cache, cfg.ProductCacheTTL, hub, logger)
	cartSvc := cart.NewService(cart.NewMongoRepository(store.CartCollection), productRepo, logger)
	gateway := pay.NewRazorpayClient(cfg.RazorpayAPIURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayRPS)
	checkoutSvc := checkout.NewService(productSvc, cartSvc, orderRepo, gateway, locker, checkout.Options{
		KeyID:    cfg.RazorpayKeyID,
		Currency: cfg.Currency,
	}, logger)
	paymentSvc := pay.NewPaymentService(pay.NewSigner(cfg.RazorpayKeySecret), orderRepo, productSvc, cartSvc, locker, logger)

	router := routes.New(routes.Handlers{
		Auth:     middleware.NewAuth(secret, denylist, logger),
		Users:    auth.NewHandler(authSvc, logger),
		Products: products.NewHandler(productSvc, logger),
		Cart:     cart.NewHandler(cartSvc, logger),
		Checkout: checkout.NewHandler(checkoutSvc, logger),
		Payments: pay.NewHandler(paymentSvc, logger),
		Orders:   orders.NewHandler(orders.NewService(orderRepo, productRepo, logger), logger),
		Images:   filemgr.NewHandler(logger),
		Feed:     hub,
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := middleware.Logging(logger)(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		logger.Info("🛑 Shutting down catalog feed...")
		hub.Stop()
	})

	go func() {
		logger.Infof("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("❌ Graceful shutdown failed: %v", err)
	}
	if err := store.Disconnect(shutdownCtx); err != nil {
		logger.WithError(err).Warn("MongoDB disconnect failed")
	}
	logger.Info("✅ Server stopped cleanly")
}

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

	"PhoneStore/internal/config"
	"PhoneStore/internal/db"
	"PhoneStore/internal/feed"
	internalhttp "PhoneStore/internal/http"
	"PhoneStore/internal/logger"
	"PhoneStore/internal/pricing"
	"PhoneStore/internal/processor"
	"PhoneStore/internal/reconcile"
	"PhoneStore/internal/services"
	"PhoneStore/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	zlog, err := logger.New(cfg.Log, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync(zlog)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	st := store.New(pool)
	hub := feed.NewHub()

	rec := reconcile.New(st, zlog.Named("reconcile"))
	rec.Notify = hub
	if cfg.Orders.DecrementStock {
		rec.Stock = st
	}

	checkout := services.CheckoutService{
		Products: st,
		Pricing:  pricing.Service{Currency: cfg.Checkout.Currency, CheckStock: cfg.Orders.DecrementStock},
	}
	h := &internalhttp.Handler{
		Orders:        services.OrderService{Store: st},
		Catalog:       services.CatalogService{Store: st},
		Billing:       services.BillingService{Customers: st},
		Reconciler:    rec,
		Payments:      st,
		Customers:     st,
		Webhook:       processor.Webhook{Secret: cfg.Stripe.WebhookSecret},
		Feed:          hub,
		InternalToken: cfg.Trigger.Token,
		Log:           zlog.Named("http"),
	}
	// Sessions and Portal stay nil interfaces without a key so checkout and
	// billing report unavailable.
	if cfg.Stripe.SecretKey != "" {
		sc := processor.NewClient(cfg.Stripe.SecretKey)
		sc.SuccessURL = cfg.Checkout.SuccessURL
		sc.CancelURL = cfg.Checkout.CancelURL
		sc.AllowedCountries = cfg.Checkout.AllowedCountries
		sc.PortalReturnURL = cfg.Checkout.PortalReturnURL
		checkout.Sessions = sc
		h.Billing.Portal = sc
		h.Sessions = sc
	} else {
		zlog.Warn("stripe secret key not set, checkout disabled")
	}
	if cfg.Trigger.Token == "" {
		zlog.Warn("trigger token not set, internal routes are unauthenticated")
	}
	h.Checkout = checkout

	srv := internalhttp.NewServer(h, internalhttp.RateLimit{
		Enabled: cfg.RateLimit.Enabled,
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("api listening", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		zlog.Warn("shutdown failed", zap.Error(err))
	}
}

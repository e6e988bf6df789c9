package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"eventtix/config"
	"eventtix/internal/handlers"
	"eventtix/internal/services"
	"eventtix/internal/services/gateway"
	"eventtix/internal/services/gateway/stripe"
	"eventtix/internal/services/gateway/wave"
	"eventtix/internal/status"
	"eventtix/internal/store"
	"eventtix/monitoring"
	"eventtix/security"
	"eventtix/utils"

	_ "eventtix/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PubNub for user-facing notifications
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pn := pubnub.NewPubNub(pnConfig)

	// Payment gateways
	registry := gateway.NewRegistry(gateway.NewFactory())
	if cfg.Stripe.SecretKey != "" {
		err := registry.Register(ctx, gateway.ProviderStripe, &stripe.Config{
			SecretKey:  cfg.Stripe.SecretKey,
			AccountID:  cfg.Stripe.AccountID,
			BaseURL:    cfg.Stripe.BaseURL,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		})
		if err != nil {
			return err
		}
	}
	if cfg.Wave.APIKey != "" {
		err := registry.Register(ctx, gateway.ProviderWave, &wave.Config{
			APIKey:             cfg.Wave.APIKey,
			BaseURL:            cfg.Wave.BaseURL,
			ErrorURL:           cfg.Wave.ErrorURL,
			SettlementCurrency: cfg.Wave.SettlementCurrency,
			PNSubscribeKey:     cfg.Wave.PNSubscribeKey,
			PNSecretKey:        cfg.Wave.PNSecretKey,
			PNUserID:           cfg.Wave.PNUserID,
			PNChannel:          cfg.Wave.PNChannel,
		})
		if err != nil {
			return err
		}
	}
	defer registry.Close(context.Background())

	// Wave pushes async transaction notifications; verify stays the
	// authoritative settlement path, the relay only logs what arrived.
	if waveGw, err := registry.Get(gateway.ProviderWave); err == nil {
		txChannel := make(chan *status.Transaction, 1)
		waveGw.SetTransactionChannel(txChannel)
		go func() {
			for {
				select {
				case t := <-txChannel:
					slog.Info("wave transaction notification", "reference", t.Reference, "status", t.Status)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Stores and services
	eventStore := store.NewEventStore(app)
	paymentStore := store.NewPaymentStore(app)
	ticketStore := store.NewTicketStore(app)
	userStore := store.NewUserStore(app)

	qrService := services.NewQRService(cfg.QRSigningKey, cfg.QRValidity)
	currencyService := services.NewCurrencyService(redisClient, cfg.Rates.BaseURL, cfg.Rates.CacheTTL)
	notifier := services.NewPubNubNotifier(pn)

	paymentService := services.NewPaymentService(
		eventStore, paymentStore, ticketStore, userStore,
		registry, currencyService, qrService, notifier,
		redisClient, cfg.CallbackURL,
	)
	ticketService := services.NewTicketService(ticketStore, eventStore, qrService)
	transferService := services.NewTransferService(ticketStore, eventStore, userStore, notifier, cfg.TransferWindow)

	// Handlers
	paymentHandler := handlers.NewPaymentHandler(app, paymentService)
	ticketHandler := handlers.NewTicketHandler(app, ticketService, transferService)
	adminHandler := handlers.NewAdminHandler(app, ticketService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.PayRateLimit, cfg.RateWindow)

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
	}

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Payment endpoints
		payments := e.Router.Group("/api/v1/payments")
		payments.BindFunc(rateLimiter.AntiBot())
		payments.POST("/initiate", paymentHandler.InitiatePayment).BindFunc(rateLimiter.PaymentRateLimit())
		payments.POST("/{reference}/verify", paymentHandler.VerifyPayment).BindFunc(rateLimiter.PaymentRateLimit())
		payments.GET("/{reference}", paymentHandler.GetPayment)
		payments.GET("/{reference}/tickets", ticketHandler.ListTicketsByPayment)

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets/{ticketId}", ticketHandler.GetTicket)
		e.Router.POST("/api/v1/tickets/{ticketId}/transfer", ticketHandler.TransferTicket)
		e.Router.POST("/api/v1/tickets/{ticketId}/transfer/cancel", ticketHandler.CancelTransfer)
		e.Router.POST("/api/v1/tickets/{ticketId}/claim", ticketHandler.ClaimTicket)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/tickets/scan", adminHandler.ScanTicket)
		e.Router.GET("/api/v1/admin/events/{eventId}/sales", adminHandler.GetSalesSummary)

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{
				"status":   "healthy",
				"gateways": gatewayList(registry),
			})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	if err := app.Start(); err != nil {
		return err
	}
	return nil
}

func gatewayList(registry *gateway.Registry) string {
	list := ""
	for _, p := range registry.Available() {
		if list != "" {
			list += ","
		}
		list += string(p)
	}
	return list
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}

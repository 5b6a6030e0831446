package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/polydesk/internal/backend"
	"github.com/GoPolymarket/polydesk/internal/chain"
	"github.com/GoPolymarket/polydesk/internal/config"
	"github.com/GoPolymarket/polydesk/internal/handler"
	"github.com/GoPolymarket/polydesk/internal/middleware"
	"github.com/GoPolymarket/polydesk/internal/pkg/logger"
	"github.com/GoPolymarket/polydesk/internal/settlement"
	"github.com/GoPolymarket/polydesk/internal/signer"
	"github.com/GoPolymarket/polydesk/internal/stream"
	"github.com/GoPolymarket/polydesk/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)

	// 2. Session Wallet
	var w *wallet.Wallet
	if cfg.Wallet.PrivateKey != "" {
		w, err = wallet.FromPrivateKey(cfg.Wallet.PrivateKey)
		if err != nil {
			log.Fatalf("Failed to load wallet key: %v", err)
		}
		logger.Info("Wallet connected", "address", w.Address().Hex())
	} else {
		logger.Warn("No wallet key configured; signing operations will fail fast")
	}

	// 3. Core Services
	networks := chain.NewNetworks(cfg.Chain.Deployments)
	chainClient := chain.NewClient(cfg.Chain.RPCURL, cfg.Chain.ChainID, w)

	backendClient := backend.NewClient(cfg.Backend.BaseURL, w.Address().Hex(),
		cfg.Backend.Timeout, cfg.Backend.RequestsPerSec)

	orderSigner := signer.New(w, networks, cfg.Chain.ChainID,
		signer.WithExpiration(time.Duration(cfg.Order.ExpirationMinutes)*time.Minute),
		signer.WithFeeRateBps(cfg.Order.FeeRateBps),
	)

	depositSession := settlement.NewDepositSession(
		settlement.Mode(cfg.Deposit.Mode), w, networks, cfg.Chain.ChainID,
		chainClient, chainClient, backendClient,
		settlement.DepositConfig{
			AllowancePollEvery: cfg.Deposit.AllowancePollEvery,
			AllowancePollTries: cfg.Deposit.AllowancePollTries,
			ConfirmPollEvery:   cfg.Deposit.ConfirmPollEvery,
			ConfirmPollTries:   cfg.Deposit.ConfirmPollTries,
		})

	withdrawSession := settlement.NewWithdrawSession(cfg.Withdraw.Token, w, networks,
		cfg.Chain.ChainID, backendClient)

	// 4. Market Data Stream
	marketStream := stream.New(stream.Config{
		URL:                  cfg.Stream.URL,
		PingInterval:         cfg.Stream.PingInterval,
		ReconnectDelay:       cfg.Stream.ReconnectDelay,
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
	})
	notificationHub := stream.NewNotificationHub(marketStream)
	if cfg.Stream.URL != "" {
		marketStream.Start()
	}

	// 5. Handlers
	orderHandler := handler.NewOrderHandler(orderSigner)
	settlementHandler := handler.NewSettlementHandler(depositSession, withdrawSession)
	marketHandler := handler.NewMarketHandler(marketStream, notificationHub)

	// 6. Router
	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "polydesk"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	idempotencyStore := middleware.NewInMemIdempotencyStore()
	limiter := rate.NewLimiter(rate.Limit(20), 40)

	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(limiter))
	{
		v1.POST("/orders/sign", orderHandler.SignOrder)

		// Irreversible chain/ledger actions sit behind idempotency keys.
		settle := v1.Group("")
		settle.Use(middleware.IdempotencyMiddleware(idempotencyStore))
		{
			settle.POST("/deposit", settlementHandler.Deposit)
			settle.POST("/withdraw", settlementHandler.Withdraw)
		}

		v1.GET("/deposit/state", settlementHandler.DepositState)
		v1.POST("/deposit/reset", settlementHandler.ResetDeposit)
		v1.GET("/withdraw/state", settlementHandler.WithdrawState)
		v1.POST("/withdraw/reset", settlementHandler.ResetWithdraw)
		v1.GET("/withdrawals", settlementHandler.PendingWithdrawals)
		v1.DELETE("/withdrawals/:id", settlementHandler.CancelWithdrawal)

		v1.GET("/markets/:id/book", marketHandler.BookView)
		v1.GET("/notifications", marketHandler.Notifications)
		v1.GET("/stream/status", marketHandler.StreamStatus)
		v1.POST("/stream/reconnect", marketHandler.Reconnect)
	}

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Polydesk started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	marketStream.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}

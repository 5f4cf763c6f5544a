package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/workhub-dev/workhub/internal/alerts"
	"github.com/workhub-dev/workhub/internal/auth"
	"github.com/workhub-dev/workhub/internal/booking"
	"github.com/workhub-dev/workhub/internal/config"
	"github.com/workhub-dev/workhub/internal/db"
	"github.com/workhub-dev/workhub/internal/job"
	"github.com/workhub-dev/workhub/internal/ledger"
	appmw "github.com/workhub-dev/workhub/internal/middleware"
	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/quotation"
	"github.com/workhub-dev/workhub/internal/realtime"
	"github.com/workhub-dev/workhub/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error("database connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	st := store.NewPostgres(pool)

	queue := alerts.NewQueue(cfg.RedisAddr)
	defer queue.Close()
	mailer := alerts.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, logger)
	processor := alerts.NewProcessor(cfg.RedisAddr, st, mailer, logger)
	processor.Start()
	defer processor.Shutdown()

	hub := realtime.NewHub()
	gateway := realtime.NewGateway(hub, st)

	jobSvc := job.NewService(st, hub, queue, logger)
	quoteSvc := quotation.NewService(st, hub, queue, cfg.QuoteCreditCost, logger)
	bookSvc := booking.NewService(st, hub, logger)
	sweeper := booking.NewSweeper(st, hub, queue, cfg.BookingGrace(), cfg.ReminderWindow(), cfg.SweepPageSize, logger)

	authH := auth.NewHandlers(st, queue, cfg.JWTSecret, logger)
	walletH := ledger.NewHandlers(st, cfg)
	jobH := job.NewHandlers(jobSvc)
	quoteH := quotation.NewHandlers(quoteSvc)
	bookH := booking.NewHandlers(bookSvc)

	registerSocketHandlers(gateway, quoteSvc, bookSvc, logger)
	go runSweeper(ctx, sweeper, cfg.SweepInterval(), logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/signup", authH.Signup)
	e.POST("/login", authH.Login)

	g := e.Group("")
	g.Use(appmw.JWT(cfg.JWTSecret))

	g.GET("/me", authH.Me)
	g.POST("/me/push-token", authH.SetPushToken)

	g.GET("/wallet/balance", walletH.Balance)
	g.POST("/wallet/topup", walletH.Topup)
	g.POST("/wallet/withdraw", walletH.Withdraw)
	g.POST("/wallet/credits/purchase", walletH.PurchaseCredits,
		appmw.RequireAccountType(string(model.AccountServiceProvider)))
	g.GET("/wallet/transactions", walletH.Transactions)

	clientOnly := appmw.RequireAccountType(string(model.AccountClient))
	providerOnly := appmw.RequireAccountType(string(model.AccountServiceProvider))

	g.POST("/tasks", jobH.CreateTask, clientOnly)
	g.GET("/tasks", jobH.ListTasks, clientOnly)
	g.GET("/tasks/:id", jobH.GetTask, clientOnly)
	g.DELETE("/tasks/:id", jobH.DeleteTask, clientOnly)
	g.PUT("/tasks/:id/base-info", jobH.UpdateBaseInfo, clientOnly)
	g.PUT("/tasks/:id/category", jobH.UpdateCategory, clientOnly)
	g.PUT("/tasks/:id/address", jobH.UpdateAddress, clientOnly)
	g.PUT("/tasks/:id/images", jobH.UpdateImages, clientOnly)
	g.PUT("/tasks/:id/start-date", jobH.UpdateStartDate, clientOnly)
	g.PUT("/tasks/:id/providers", jobH.UpdateProviders, clientOnly)
	g.PUT("/tasks/:id/answers", jobH.UpdateAnswers, clientOnly)
	g.POST("/tasks/:id/publish", jobH.Publish, clientOnly)

	g.GET("/jobs", jobH.OpenJobs, providerOnly)
	g.GET("/jobs/mine", jobH.ClientJobs, clientOnly)
	g.GET("/jobs/:id", jobH.GetJob)
	g.POST("/jobs/:id/cancel", jobH.CancelJob, clientOnly)

	g.POST("/quotations", quoteH.Submit, providerOnly)
	g.GET("/quotations/mine", quoteH.Mine, providerOnly)
	g.POST("/quotations/:id/read", quoteH.MarkRead, clientOnly)
	g.GET("/jobs/:jobID/quotations", quoteH.ForJob, clientOnly)
	g.POST("/jobs/:jobID/quotations/:id/accept", quoteH.Accept, clientOnly)
	g.POST("/jobs/:jobID/quotations/:id/reject", quoteH.Reject, clientOnly)

	g.GET("/bookings", bookH.List)
	g.GET("/bookings/:id", bookH.Get)
	g.POST("/bookings/:id/start/request", bookH.RequestStart)
	g.POST("/bookings/:id/start/deny", bookH.DenyStart)
	g.POST("/bookings/:id/finish/request", bookH.RequestFinish)
	g.POST("/bookings/:id/finish/deny", bookH.DenyFinish)
	g.POST("/bookings/:id/dispute", bookH.Dispute)

	g.GET("/ws", gateway.Serve)
	g.GET("/conversations/:id/messages", gateway.Messages)

	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWT(cfg.JWTSecret))
	adminGroup.Use(appmw.RequireAccountType(string(model.AccountSuperAdmin)))
	adminGroup.GET("/transactions", walletH.AllTransactions)

	logger.Info("server listening", "port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

type socketQuotationPayload struct {
	JobID        string     `json:"job_id"`
	Budget       int64      `json:"budget"`
	ProposedDate *time.Time `json:"proposed_date"`
	CoverNote    string     `json:"cover_note"`
}

type socketBookingPayload struct {
	BookingID string `json:"booking_id"`
}

// registerSocketHandlers wires the client-sent socket events to the domain
// services. Failures are logged; the socket protocol has no reply channel for
// errors beyond the events the services already emit.
func registerSocketHandlers(gw *realtime.Gateway, quoteSvc *quotation.Service, bookSvc *booking.Service, logger *slog.Logger) {
	gw.Handle(realtime.EventSpSendQuotation, func(ctx context.Context, userID string, data json.RawMessage) {
		var p socketQuotationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if _, err := quoteSvc.Submit(ctx, userID, p.JobID, p.Budget, p.ProposedDate, p.CoverNote); err != nil {
			logger.Warn("socket quotation submit", "user_id", userID, "job_id", p.JobID, "err", err)
		}
	})
	gw.Handle(realtime.EventClientAcceptStartBooking, func(ctx context.Context, userID string, data json.RawMessage) {
		var p socketBookingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if _, err := bookSvc.RequestStart(ctx, p.BookingID, userID); err != nil {
			logger.Warn("socket booking start", "user_id", userID, "booking_id", p.BookingID, "err", err)
		}
	})
}

// runSweeper drives the lifecycle sweep on a fixed tick. The overlap guard in
// the store keeps multiple instances from double-sweeping.
func runSweeper(ctx context.Context, s *booking.Sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.Run(ctx, now, interval); err != nil {
				logger.Error("sweep run", "err", err)
			}
		}
	}
}

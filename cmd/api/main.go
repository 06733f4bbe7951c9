package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/intakehq/helpdesk/internal/api/http"
	"github.com/intakehq/helpdesk/internal/api/http/handlers"
	"github.com/intakehq/helpdesk/internal/auth"
	"github.com/intakehq/helpdesk/internal/classifier"
	"github.com/intakehq/helpdesk/internal/config"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/mailer"
	"github.com/intakehq/helpdesk/internal/observability"
	"github.com/intakehq/helpdesk/internal/persistence"
	"github.com/intakehq/helpdesk/internal/repository"
	"github.com/intakehq/helpdesk/internal/service"
	"github.com/intakehq/helpdesk/internal/worker"
	"github.com/intakehq/helpdesk/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	bus := events.NewRedisBus(redis.Client, cfg.Worker.QueueKey)

	userService := service.NewUserService(*cfg, service.UserDependencies{
		UserRepo: userRepo,
		Bus:      bus,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Bus:         bus,
		Logger:      logger,
	})

	runner := workflow.NewRunner(cfg.Worker.MaxStepAttempts, logger)
	mail := mailer.NewSMTPSender(cfg.Mail, logger)

	assignmentFlow := workflow.NewAssignmentFlow(workflow.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Classifier:  classifier.NewHTTPClassifier(cfg.Classifier, logger),
		Mailer:      mail,
		Runner:      runner,
		Logger:      logger,
	})
	assignmentFlow.Register(bus)

	welcomeFlow := workflow.NewWelcomeFlow(userRepo, mail, runner)
	welcomeFlow.Register(bus)

	eventWorker := worker.New(bus, cfg.Worker.Concurrency, logger, metrics)
	eventWorker.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(userService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
	eventWorker.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

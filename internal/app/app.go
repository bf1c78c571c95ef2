package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/dal/rabbitmq"
	auditrepo "github.com/corray333/pedidos-svc/internal/dal/repositories/audit"
	requestlogrepo "github.com/corray333/pedidos-svc/internal/dal/repositories/requestlog/postgres"
	"github.com/corray333/pedidos-svc/internal/jaeger"
	"github.com/corray333/pedidos-svc/internal/service/services/customersvc"
	"github.com/corray333/pedidos-svc/internal/service/services/ordersvc"
	"github.com/corray333/pedidos-svc/internal/service/services/productsvc"
	httptransport "github.com/corray333/pedidos-svc/internal/transport/http"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// App represents the application.
type App struct {
	customerSvc *customersvc.CustomerService
	productSvc  *productsvc.ProductService
	orderSvc    *ordersvc.OrderService

	transport      *httptransport.HTTPTransport
	reqLogger      *reqlog.Logger
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	tracerProvider *tracesdk.TracerProvider
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	tracerProvider := mustSetupTracing()

	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	reqLogger := reqlog.MustNewLogger(
		viper.GetString("logging.dir"),
		reqlog.WithSecondaryStore(requestlogrepo.NewRequestLogRepository(postgresClient)),
	)

	auditRepo := auditrepo.NewAuditRabbitMQRepository(rabbitClient)

	customerSvc := customersvc.MustNewCustomerService(
		customersvc.WithPostgresClient(postgresClient),
		customersvc.WithRequestAuditor(reqLogger),
	)
	productSvc := productsvc.MustNewProductService(
		productsvc.WithPostgresClient(postgresClient),
		productsvc.WithRequestAuditor(reqLogger),
	)
	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithAuditRepository(auditRepo),
		ordersvc.WithRequestAuditor(reqLogger),
	)

	transport := httptransport.NewHTTPTransport(reqLogger, customerSvc, productSvc, orderSvc)
	transport.RegisterRoutes()

	return &App{
		customerSvc:    customerSvc,
		productSvc:     productSvc,
		orderSvc:       orderSvc,
		transport:      transport,
		reqLogger:      reqLogger,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		tracerProvider: tracerProvider,
	}
}

func mustSetupTracing() *tracesdk.TracerProvider {
	exporter := jaeger.MustNewJaeger()

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("pedidos-svc"),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.tracerProvider.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	slog.Info("Application shutdown complete")
}

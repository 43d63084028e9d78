package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/transferflow/internal/adapter/grpc"
	"github.com/simaogato/transferflow/internal/adapter/repository/postgres"
	"github.com/simaogato/transferflow/internal/adapter/transferapi"
	"github.com/simaogato/transferflow/internal/config"
	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/history"
	"github.com/simaogato/transferflow/internal/usecase/poller"
	"github.com/simaogato/transferflow/internal/usecase/reference"
	"github.com/simaogato/transferflow/internal/usecase/workflow"
)

const journalConnectTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Load Configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Setup Telemetry (exporter settings come from the standard OTEL_* variables)
	if cfg.OTelEnabled {
		otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithSpanProcessor(honeycomb.NewBaggageSpanProcessor()),
		)
		if err != nil {
			log.Fatalf("Failed to configure OpenTelemetry: %v", err)
		}
		defer otelShutdown()
		log.Println("OpenTelemetry configured")
	}

	// 3. Setup Journal (optional)
	var journal domain.JournalRepository
	if cfg.JournalDSN != "" {
		dbCtx, cancel := context.WithTimeout(ctx, journalConnectTimeout)
		db, err := postgres.NewDB(dbCtx, cfg.JournalDSN)
		if err == nil {
			err = postgres.EnsureSchema(dbCtx, db)
		}
		cancel()
		if err != nil {
			log.Fatalf("Failed to prepare journal database: %v", err)
		}
		defer db.Close()

		journal = postgres.NewJournalRepository(db)
		log.Println("Workflow journal enabled")
	}

	// 4. Initialize Transfer API Client
	client, err := transferapi.NewClient(cfg.TransferAPIURL,
		transferapi.WithTimeout(cfg.TransferAPITimeout),
		transferapi.WithToken(cfg.TransferAPIToken),
	)
	if err != nil {
		log.Fatalf("Failed to create transfer API client: %v", err)
	}

	// 5. Initialize Services (Use Cases)
	statusPoller := poller.NewStatusPoller(client, logger)
	workflows := workflow.NewManager(client, client, statusPoller, workflow.Config{
		Policy:  cfg.PollPolicy(),
		Limits:  cfg.Limits(),
		Journal: journal,
		Logger:  logger,
	})
	historyService := history.NewHistoryService(client)
	referenceService := reference.NewReferenceService(client)

	// 6. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.GatewayToken)),
		grpclib.StreamInterceptor(grpcadapter.StreamAuthInterceptor(cfg.GatewayToken)),
	)
	grpcadapter.RegisterTransferWorkflowServiceServer(grpcServer, grpcadapter.NewServer(workflows, historyService, referenceService))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCAddr, err)
	}

	go func() {
		log.Printf("gRPC server listening on %s (transfer API %s)", cfg.GRPCAddr, cfg.TransferAPIURL)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, workflows)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server.
// In-flight workflows stop tracking; their transfers may still settle server-side.
func waitForShutdown(grpcServer *grpclib.Server, workflows *workflow.Manager) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	workflows.Close()
	log.Println("Workflows abandoned")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")
}

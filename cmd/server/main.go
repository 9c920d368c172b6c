// cmd/server/main.go runs the background side of the economy: the item
// grant processor and the ledger stream consumers that keep the balance
// cache current. It answers grpc health checks on the overseer listener.
package main

import (
	"context"
	"net"
	"sync"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/async"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/config"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/cache"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/db"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	walletstore "github.com/snowmuffin/game-hub-nest-sub001/internal/modules/wallet/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/store"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/worker"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/graceful"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/jpillora/overseer"
	"github.com/jpillora/overseer/fetcher"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	grantService   = "economy.GrantProcessor"
	balanceService = "economy.BalanceProjector"
)

func main() {
	debug := config.GetAppEnv() == "development"

	overseer.Run(overseer.Config{
		Program:       program,
		Address:       ":" + config.GetAppPort(), // overseer owns the listener
		Fetcher:       &fetcher.File{Path: config.GetAppBinFile(), Interval: 5},
		Debug:         debug,
		RestartSignal: graceful.RestartSignal,
	})
}

func program(state overseer.State) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	graceful.SetupGracefulShutdown(cancel)

	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)
	logger.InitLogFile(cfg.App.LogFilePath, cfg.App.LogFile)
	defer logger.CloseLogFile()

	// --- DB connections ---
	dbWrite, err := db.ConnectDBWrite(cfg.DB)
	if err != nil {
		logger.Fatal("❌ Failed DB write: " + err.Error())
	}
	dbRead, err := db.ConnectDBRead(cfg.DB)
	if err != nil {
		logger.Fatal("❌ Failed DB read: " + err.Error())
	}
	logger.Infof("✅ DB connected (write=%s, read=%s)", cfg.DB.DBWrite.Name, cfg.DB.DBRead.Name)

	// --- Redis connection ---
	rdb, err := cache.ConnectRedis(ctx, *cfg.Redis, cfg.App.Name+"-worker")
	if err != nil {
		logger.Fatal("❌ Redis connect: " + err.Error())
	}
	logger.Info("✅ Redis connected")

	// --- Dependencies ---
	storage := repository.NewStorageRepository(dbWrite, dbRead)
	queue := store.NewGrantQueue(rdb, store.QueueOptions{
		ReadyKey:      cfg.Grant.ReadyKey,
		DeadLetterKey: cfg.Grant.DeadLetterKey,
		DedupTTL:      cfg.Grant.DedupTTL,
	})
	if err := queue.Preload(ctx); err != nil {
		logger.Fatal("❌ Grant queue scripts: " + err.Error())
	}
	balances := walletstore.NewBalanceCache(rdb, cfg.Worker.CacheTTL)

	healthServer := health.NewServer()

	var wg sync.WaitGroup

	// --- Grant processor (BRPOP ready:grant -> DB -> release) ---
	proc := async.NewProcessor(rdb, storage, queue, async.Options{
		MaxAttempts: cfg.Grant.MaxAttempts,
		BRPopBlock:  cfg.Grant.BRPopBlock,
		DBExecTO:    cfg.Grant.DBExecTimeout,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		proc.Run(ctx)
	}()
	healthServer.SetServingStatus(grantService, healthgrpc.HealthCheckResponse_SERVING)

	// --- Ledger stream consumers -> balance cache ---
	for i := 0; i < max(1, cfg.Worker.WorkerCount); i++ {
		w := worker.NewBalanceStreamWorker(rdb, balances, &worker.Options{
			Stream:       cfg.Worker.Stream,
			Group:        cfg.Worker.Group,
			TrimAfterAck: false,
		})
		consumer := worker.ConsumerName(cfg.Worker.Instance, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, consumer)
		}()
	}
	healthServer.SetServingStatus(balanceService, healthgrpc.HealthCheckResponse_SERVING)

	// --- gRPC health server ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		startGRPCServer(ctx, healthServer, state.Listener)
	}()

	// Block until a signal cancels ctx
	<-ctx.Done()

	logger.Info("🛑 Waiting for all shutdown gracefully...")
	wg.Wait()

	db.CloseDBWrite()
	db.CloseDBRead()
	_ = rdb.Close()
	logger.Info("✅ Cleanup done. Exiting.")
}

// startGRPCServer serves health and reflection on listener until ctx ends.
func startGRPCServer(ctx context.Context, healthServer *health.Server, listener net.Listener) {
	s := grpc.NewServer()

	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_SERVING)
	healthgrpc.RegisterHealthServer(s, healthServer)

	// grpcurl / evans
	reflection.Register(s)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("🚀 gRPC health server starting...")
		errChan <- s.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("🔴 Stopping gRPC server...")
		healthServer.Shutdown()
		s.GracefulStop()
		logger.Info("✅ gRPC server stopped.")
	case err := <-errChan:
		if err != nil {
			logger.Error("❌ gRPC server error: " + err.Error())
		}
	}
}

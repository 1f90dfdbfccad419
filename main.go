package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/boardserver/broadcast"
	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/game/fiveinarow"
	"github.com/wfunc/boardserver/game/marble"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/matchmaking"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/persistence"
	"github.com/wfunc/boardserver/registry"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/rpc"
	"github.com/wfunc/boardserver/server"
	"github.com/wfunc/boardserver/services"
	"github.com/wfunc/boardserver/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize archive
	openCtx, cancel := context.WithTimeout(ctx, cfg.Archive.Timeout)
	sink, err := persistence.Open(openCtx, cfg)
	cancel()
	if err != nil {
		logger.Log.Fatalf("Failed to open %s archive: %v", cfg.Archive.Driver, err)
	}
	archive := persistence.NewArchiver(sink, cfg.Archive.Timeout)
	logger.Log.Infof("Archive driver: %s", cfg.Archive.Driver)

	timers := timer.NewTimerManager(cfg.Game.TimerResolution)
	engines := game.NewRegistry(fiveinarow.Engine{}, marble.NewEngine(0))

	clients := registry.New()
	out := broadcast.NewRoomBroadcaster(clients)
	rooms := room.NewRoomManager(engines, timers, out, cfg.Game.CleanupDelay)
	out.SetRooms(rooms)
	rooms.OnClose(archive.Hook)
	queue := matchmaking.NewQueue()
	mon := monitor.NewMonitor("boardserver")

	dispatcher := server.NewDispatcher(clients, queue, rooms, engines, out, mon, cfg.Game.InboxSize)
	go dispatcher.Run(ctx)

	// Initialize RPC server
	lobby := services.NewLobbyService(clients, queue, rooms, archive)
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, lobby)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()

	// Start Server
	gameServer := server.NewGameServer(cfg.Server, dispatcher, mon)
	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("HTTP shutdown: %v", err)
	}
	rpcServer.Stop()
	rooms.Shutdown()
	timers.Stop()
	if err := archive.Close(); err != nil {
		logger.Log.Warnf("Archive close: %v", err)
	}
}

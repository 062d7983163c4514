package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"voxctf/internal/api"
	"voxctf/internal/config"
	"voxctf/internal/eventlog"
	"voxctf/internal/game"
	"voxctf/internal/kernel"
	"voxctf/internal/master"
	"voxctf/internal/memmap"
	"voxctf/internal/udptransport"
)

func main() {
	appCfg := config.Load()

	log.Println("================================")
	log.Println(" VOXCTF SERVER")
	log.Println("================================")
	log.Printf("game: %s v%s, tick %s", appCfg.Game.Name, appCfg.Game.Version, appCfg.Game.TickRate)
	log.Printf("map: %dx%d, maxZ %d, seed %d", appCfg.Map.Width, appCfg.Map.Height, appCfg.Map.MaxZ, appCfg.Map.Seed)

	vmap := memmap.New(appCfg.Map.Width, appCfg.Map.Height, appCfg.Map.MaxZ)
	vmap.Generate(appCfg.Map.Seed)

	world := kernel.New(vmap)

	transport, err := udptransport.New(appCfg.Network.UDPListenAddr)
	if err != nil {
		log.Fatalf("udp listen on %s: %v", appCfg.Network.UDPListenAddr, err)
	}

	var events *eventlog.Log
	if appCfg.EventLog.Enabled {
		events = eventlog.New()
		if appCfg.EventLog.Path != "" {
			if err := events.Start(appCfg.EventLog.Path); err != nil {
				log.Printf("event log disk sink disabled: %v", err)
			} else {
				log.Printf("event log: %s", appCfg.EventLog.Path)
			}
		}
	}

	server := game.NewServer(appCfg.Game, vmap, world, transport, master.NewNoopClient(), nil, events)
	transport.Bind(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Run(ctx)
	go func() {
		if err := transport.Serve(ctx); err != nil {
			log.Printf("udp transport stopped: %v", err)
		}
	}()

	admin := api.NewServer(server)
	go func() {
		log.Printf("admin API on %s", appCfg.Network.AdminAddr)
		if err := admin.Start(appCfg.Network.AdminAddr); err != nil {
			log.Printf("admin API stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	server.Stop()
	admin.Stop()
	if events != nil {
		events.Stop()
	}
	cancel()
}

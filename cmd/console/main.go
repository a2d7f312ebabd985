package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"feedme-console/internal/bootstrap"
	"feedme-console/internal/config"
	"feedme-console/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap console core: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Start Background Services (bus subscribers + realtime connection)
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start console core: %v", err)
	}

	// 4. Status Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Status server stopped: %v", err)
		}
	}()

	// 5. Wait for shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()
	_ = srv.Shutdown()
	container.Close()
}

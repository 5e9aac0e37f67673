package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"wheelhouse/internal/server"
)

func main() {
	srv := server.New()
	srv.RegisterFiberRoutes()

	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	go func() {
		if err := srv.App.Listen(fmt.Sprintf(":%d", port)); err != nil {
			log.Panicf("[SERVER] Failed to start: %v", err)
		}
	}()
	log.Printf("[SERVER] Listening on :%d", port)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("[SERVER] Gracefully shutting down...")
	if err := srv.App.Shutdown(); err != nil {
		log.Printf("[SERVER] Forced shutdown: %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		log.Printf("[SERVER] Cleanup error: %v", err)
	}
	log.Println("[SERVER] Exited cleanly")
}

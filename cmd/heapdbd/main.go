package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mnohosten/laura-db/pkg/adminserver"
	"github.com/mnohosten/laura-db/pkg/storage"
)

func main() {
	host := flag.String("host", "localhost", "Admin server host address")
	port := flag.Int("port", 8080, "Admin server port")
	dataDir := flag.String("data-dir", "./data", "Storage directory for container heap files")
	temp := flag.Bool("temp", false, "Run with a scratch data directory removed on shutdown (never use with -data-dir you care about)")
	flag.Parse()

	sm, err := storage.New(storage.Config{DataDir: *dataDir, Temp: *temp})
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapdbd: failed to open storage manager: %v\n", err)
		os.Exit(1)
	}

	srv := adminserver.New(adminserver.Config{Host: *host, Port: *port}, sm)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "heapdbd: server error: %v\n", err)
		}
	case sig := <-sigChan:
		fmt.Fprintf(os.Stderr, "heapdbd: received signal %v, shutting down\n", sig)
	}

	if !*temp {
		if err := sm.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "heapdbd: shutdown error: %v\n", err)
		}
	}
	if err := sm.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "heapdbd: close error: %v\n", err)
	}
}

// Command demosite starts the webgrade demo target server.
// Usage: go run ./cmd/demosite [port]
// Default port: 9797
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/webgrade/webgrade/internal/demosite"
)

func main() {
	cfg := demosite.DefaultConfig()

	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	if err := demosite.Serve(cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

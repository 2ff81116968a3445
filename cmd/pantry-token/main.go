// Command pantry-token mints a bearer token for an owner id.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tuanvumaihuynh/pantry-sync/internal/auth"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running token application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	owner := flag.String("owner", "", "owner id written to the token subject")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	if *owner == "" {
		flag.Usage()
		return fmt.Errorf("-owner is required")
	}

	type Config struct {
		Auth config.Auth
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	token, err := auth.GenerateToken(cfg.Auth.JWTSecret, *owner, *ttl)
	if err != nil {
		return fmt.Errorf("error generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// Command issue-token mints an administrator bearer token signed with the
// configured JWT secret, for local use and operators without an identity provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garyjia/approval-letters/internal/config"
	httpapi "github.com/garyjia/approval-letters/internal/interfaces/http"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	userID := flag.String("id", "", "administrator id (required)")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "contact shown on approvals and the letter")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-id is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	tokens := httpapi.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, lifetime)
	token, expires, err := tokens.Issue(*userID, *name, *email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	fmt.Println(token)
}

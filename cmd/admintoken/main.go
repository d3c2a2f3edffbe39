package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/IT-Nick/testbot/internal/infra/auth"
	"github.com/IT-Nick/testbot/internal/infra/config"
)

// admintoken печатает JWT для HTTP API администратора
func main() {
	configPath := flag.String("config", "", "config file to take auth.jwt_secret from")
	secret := flag.String("secret", "", "HMAC secret, overrides config and JWT_SECRET")
	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	key := *secret
	if key == "" && *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		key = cfg.Auth.JWTSecret
	}
	if key == "" {
		key = os.Getenv("JWT_SECRET")
	}

	token, err := auth.IssueToken(key, *subject, auth.RoleAdmin, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

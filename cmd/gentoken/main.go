// Package main generates a signed API token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/launchdeck/launchdeck/internal/auth"
	"github.com/launchdeck/launchdeck/internal/models"
)

func main() {
	userID := flag.String("user", "", "user ID to embed in the token")
	email := flag.String("email", "", "email to embed in the token")
	plan := flag.String("plan", "free", "plan to embed in the token")
	expiry := flag.Duration("expiry", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}
	p := models.Plan(*plan)
	if !p.IsValid() {
		fmt.Fprintf(os.Stderr, "unknown plan: %s\n", *plan)
		os.Exit(1)
	}

	svc := auth.NewService(&auth.Config{
		JWTSecret:   []byte(secret),
		TokenExpiry: *expiry,
	}, nil)

	token, err := svc.GenerateToken(*userID, *email, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/upb/publication-rag/config"
	"github.com/upb/publication-rag/middleware"
)

var errNoSecret = errors.New("AUTH_JWT_SECRET is not set; ingestion routes are open")

func main() {
	var (
		subject string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "ingest", "Token subject, recorded in the access log")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if err := run(context.Background(), os.Stdout, subject, ttl, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "publication-token: %v\n", err)
		os.Exit(1)
	}
}

// run prints a bearer token accepted by the ingestion routes
func run(ctx context.Context, out io.Writer, subject string, ttl time.Duration, now time.Time) error {
	if subject == "" {
		return errors.New("subject must not be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errNoSecret
	}

	token, err := middleware.SignToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, subject, now.Add(ttl).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	MongoURI       string
	DatabaseName   string
	Port           string
	JWTSecret      string
	WebhookWorkers int
	CheckoutBase   string
}

func Load() (*Config, error) {
	uri := os.Getenv("MONGOURI")
	if uri == "" {
		return nil, fmt.Errorf("MONGOURI environment variable is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	dbName := os.Getenv("DATABASE_NAME")
	if dbName == "" {
		dbName = "payhubdb"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	workers := 4
	if v := os.Getenv("WEBHOOK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid WEBHOOK_WORKERS value %q", v)
		}
		workers = n
	}

	checkoutBase := os.Getenv("CHECKOUT_BASE_URL")
	if checkoutBase == "" {
		checkoutBase = "https://payhubprime.com"
	}

	return &Config{
		MongoURI:       uri,
		DatabaseName:   dbName,
		Port:           port,
		JWTSecret:      secret,
		WebhookWorkers: workers,
		CheckoutBase:   checkoutBase,
	}, nil
}

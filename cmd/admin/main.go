package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"visascope/internal/config"
	"visascope/internal/database"
	"visascope/internal/partner"
)

func main() {
	var (
		partnerID   = flag.String("partner-id", "", "partner identifier (required)")
		partnerName = flag.String("partner-name", "", "partner display name (required)")
		rateLimit   = flag.Int("rate-limit", 1000, "daily request quota for the key")
		dbHost      = flag.String("db-host", "", "database host (optional, falls back to DATABASE_HOST)")
		dbPort      = flag.Int("db-port", 0, "database port (optional, falls back to DATABASE_PORT)")
		dbName      = flag.String("db-name", "", "database name (optional, falls back to POSTGRES_DB)")
		dbUser      = flag.String("db-user", "", "database user (optional, falls back to POSTGRES_USER)")
		dbPass      = flag.String("db-password", "", "database password (optional, falls back to POSTGRES_PASSWORD)")
		sslMode     = flag.String("db-sslmode", "", "database sslmode (optional, falls back to DATABASE_SSLMODE)")
	)
	flag.Parse()

	id := strings.TrimSpace(*partnerID)
	name := strings.TrimSpace(*partnerName)
	if id == "" {
		log.Fatal("missing required flag: --partner-id")
	}
	if name == "" {
		log.Fatal("missing required flag: --partner-name")
	}
	if *rateLimit <= 0 {
		log.Fatal("--rate-limit must be positive")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := db.AutoMigrate(&database.PartnerKey{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.PartnerKey
	switch err := db.Where("partner_id = ?", id).First(&existing).Error; {
	case err == nil:
		log.Fatalf("partner %q already has a key (revoke it first)", id)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query partner key: %v", err)
	}

	rawKey, err := partner.GenerateKey()
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	rec := database.PartnerKey{
		KeyDigest:   partner.Digest(rawKey),
		PartnerID:   id,
		PartnerName: name,
		RateLimit:   *rateLimit,
		Active:      true,
	}
	if err := db.Create(&rec).Error; err != nil {
		log.Fatalf("create partner key: %v", err)
	}

	fmt.Printf("Partner key created for %s (%s):\n", name, id)
	fmt.Printf("API key: %s\n", rawKey)
	fmt.Printf("Daily rate limit: %d\n", *rateLimit)
	fmt.Printf("Store this key now - only its digest is kept in the database.\n")
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/rajasatyajit/apikey-authorizer/config"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
)

func TestNew_NoDatabase(t *testing.T) {
	// Initialize logger for tests
	logger.Init("error", "text")

	db, err := New(context.Background(), config.DatabaseConfig{URL: ""})
	if err != nil {
		t.Errorf("Expected no error for empty database URL, got %v", err)
	}
	if db == nil {
		t.Fatal("Expected DB instance, got nil")
	}
	if db.IsConfigured() {
		t.Error("Expected IsConfigured to return false when no database")
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "invalid-url", MaxConns: 1})
	if err == nil {
		t.Error("Expected error for invalid database URL, got nil")
	}
}

func TestDB_Operations_NoPool(t *testing.T) {
	db := &DB{pool: nil, cfg: config.DatabaseConfig{}}
	ctx := context.Background()

	if err := db.Exec(ctx, "SELECT 1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured from Exec, got %v", err)
	}

	var one int
	if err := db.QueryRow(ctx, "SELECT 1").Scan(&one); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured from QueryRow.Scan, got %v", err)
	}

	if err := db.Health(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured from Health, got %v", err)
	}

	// Should not panic when closing with no pool
	db.Close()
}

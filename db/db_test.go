package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnectWithoutURI(t *testing.T) {
	m := NewManager(Options{}, quietLogger())

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Connect() error = %v, want ErrConfiguration", err)
	}

	if _, err := m.Collection(context.Background(), CollectionUser); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Collection() error = %v, want ErrConfiguration", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	m := NewManager(Options{
		URI:            "mongodb://127.0.0.1:1/?directConnection=true",
		ConnectTimeout: 300 * time.Millisecond,
	}, quietLogger())

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("Connect() error = %v, want ErrConnection", err)
	}
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(Options{URI: "mongodb://localhost"}, nil)
	if m.opts.Database != DefaultDatabaseName {
		t.Errorf("Database = %q, want %q", m.opts.Database, DefaultDatabaseName)
	}
	if m.opts.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %s, want 10s", m.opts.ConnectTimeout)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Errorf("Close() on unconnected manager = %v", err)
	}
}

func TestCollectionNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool, len(CollectionNames))
	for _, name := range CollectionNames {
		if seen[name] {
			t.Fatalf("duplicate collection name %q", name)
		}
		seen[name] = true
	}
	if len(seen) != 11 {
		t.Fatalf("expected 11 collections, got %d", len(seen))
	}
}

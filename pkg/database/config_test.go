package database_test

import (
	"testing"
	"time"

	"github.com/edgevault/edgevault/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	c := &database.Config{Name: "edgevault", User: "edgevault"}
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if c.Host != "localhost" {
		t.Errorf("Host = %q, want localhost", c.Host)
	}
	if c.Port != 5432 {
		t.Errorf("Port = %d, want 5432", c.Port)
	}
	if c.SSLMode != "disable" {
		t.Errorf("SSLMode = %q, want disable", c.SSLMode)
	}
	if got := c.ConnMaxLifetimeDuration(); got != 15*time.Minute {
		t.Errorf("ConnMaxLifetimeDuration() = %v, want 15m", got)
	}
}

func TestFinalizeRequiresNameAndUser(t *testing.T) {
	c := &database.Config{}
	if err := c.Finalize(nil); err == nil {
		t.Fatal("Finalize() error = nil, want missing name error")
	}
}

func TestDsnComposesFields(t *testing.T) {
	c := &database.Config{Name: "edgevault", User: "app", Password: "secret"}
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	want := "host=localhost port=5432 dbname=edgevault user=app password=secret sslmode=disable"
	if got := c.Dsn(); got != want {
		t.Errorf("Dsn() = %q, want %q", got, want)
	}
}

func TestDsnOverrideWins(t *testing.T) {
	c := &database.Config{
		DSN:  "postgres://app:secret@db:5432/edgevault?sslmode=require",
		Host: "ignored",
	}
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if got := c.Dsn(); got != c.DSN {
		t.Errorf("Dsn() = %q, want the explicit DSN", got)
	}
}

func TestFinalizeDsnFromEnv(t *testing.T) {
	t.Setenv("TEST_DB_DSN", "postgres://app@db/edgevault")

	c := &database.Config{}
	if err := c.Finalize(&database.Env{DSN: "TEST_DB_DSN"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if c.DSN != "postgres://app@db/edgevault" {
		t.Errorf("DSN = %q, want env value", c.DSN)
	}
}

func TestMergeOverlay(t *testing.T) {
	c := &database.Config{Host: "localhost", Name: "edgevault", User: "app"}
	c.Merge(&database.Config{Host: "db.internal", MaxOpenConns: 50})

	if c.Host != "db.internal" {
		t.Errorf("Host = %q, want db.internal", c.Host)
	}
	if c.MaxOpenConns != 50 {
		t.Errorf("MaxOpenConns = %d, want 50", c.MaxOpenConns)
	}
	if c.Name != "edgevault" {
		t.Errorf("Name = %q, want edgevault", c.Name)
	}
}

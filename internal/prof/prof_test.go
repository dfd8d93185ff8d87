package prof

import (
	"context"
	"strings"
	"testing"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
)

func TestStart_Disabled(t *testing.T) {
	var reported []bool
	stop, err := Start(log.WithContext(context.Background(), log.Nop()), Options{
		Enabled:   false,
		AuthToken: "secret",
		Tags:      map[string]string{"k": "v"},
		OnActive:  func(b bool) { reported = append(reported, b) },
	})
	if err != nil {
		t.Fatalf("disabled should never error, got: %v", err)
	}
	stop()
	stop()

	if len(reported) != 1 || reported[0] {
		t.Fatalf("OnActive calls = %v, want [false]", reported)
	}
}

func TestStart_EmptyServerAddress(t *testing.T) {
	var active = true
	stop, err := Start(context.Background(), Options{
		Enabled:  true,
		AppName:  "linnemanlabs-pipeline",
		OnActive: func(b bool) { active = b },
	})
	if err == nil || !strings.Contains(err.Error(), "invalid server address") {
		t.Fatalf("err = %v, want invalid server address", err)
	}
	if stop == nil {
		t.Fatal("stop must be non-nil even on error")
	}
	stop()
	stop()
	if active {
		t.Fatal("OnActive should report false on error")
	}
}

func TestStart_NilOnActive(t *testing.T) {
	stop, _ := Start(context.Background(), Options{Enabled: true})
	stop()
}

func TestConfig(t *testing.T) {
	cfg, err := Options{
		AppName:       "linnemanlabs-pipeline",
		ServerAddress: "http://pyroscope:4040",
		AuthToken:     "tok",
		TenantID:      "t1",
		Tags:          map[string]string{"component": "server"},
	}.config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.ApplicationName != "linnemanlabs-pipeline" || cfg.TenantID != "t1" || cfg.BasicAuthPassword != "tok" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Tags["component"] != "server" {
		t.Fatalf("tags = %v", cfg.Tags)
	}
	if len(cfg.ProfileTypes) != len(profileTypes) {
		t.Fatalf("profile types = %d", len(cfg.ProfileTypes))
	}
}

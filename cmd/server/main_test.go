package main

import (
	"net/http"
	"testing"

	"brandgen-go/internal/config"
)

func TestNewHTTPServerAddr(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Port = "8088"
	s := newHTTPServer(cfg, http.NotFoundHandler())
	if s.Addr != ":8088" {
		t.Fatalf("addr = %q", s.Addr)
	}
	if s.WriteTimeout != 0 {
		t.Fatalf("write timeout would cut long streams")
	}

	cfg.Server.Port = " "
	if got := newHTTPServer(cfg, nil).Addr; got != ":5000" {
		t.Fatalf("default addr = %q", got)
	}
}

func TestReportValidation(t *testing.T) {
	cfg := config.Defaults()
	if !reportValidation(cfg) {
		t.Fatalf("defaults should validate")
	}
	cfg.Server.Port = "not-a-port"
	if reportValidation(cfg) {
		t.Fatalf("expected invalid port to fail validation")
	}
}

package main

import (
	"net/http"
	"strings"
	"time"

	"brandgen-go/internal/config"
	log "github.com/sirupsen/logrus"
)

// newHTTPServer builds the listener. No WriteTimeout: streams may run for
// the configured max duration.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	port := strings.TrimSpace(cfg.Server.Port)
	if port == "" {
		port = config.Defaults().Server.Port
	}
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// reportValidation logs warnings and errors; it returns false on any error.
func reportValidation(cfg *config.Config) bool {
	res := cfg.Validate()
	for _, w := range res.Warnings {
		log.WithField("field", w.Field).Warn(w.Message)
	}
	for _, e := range res.Errors {
		log.WithFields(log.Fields{"field": e.Field, "value": e.Value}).Error(e.Message)
	}
	return res.Valid
}

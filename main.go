// Chronoquery - Templated monitoring queries for dashboards
// Copyright (C) 2025 Andy Dixon <andy@andydixon.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Chronoquery - Andy Dixon <andy@andydixon.com> github.com/andydixon

// Welcome to Chronoquery!
//
// Dashboards speak in templates: ${__interval_sec}, ${__device}, whatever
// the user picked in a dropdown. The monitoring server speaks in plain
// query strings. We sit in the middle and translate, one batch at a time.
//
// This is the launch pad, where we:
// 1. Read the flight plan (config)
// 2. Dial the monitoring server (backend client + circuit breaker)
// 3. Start the engine and open the doors (HTTP)

package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/andydixon/chronoquery/backend"
	"github.com/andydixon/chronoquery/engine"
	"github.com/andydixon/chronoquery/internal/config"
	"github.com/andydixon/chronoquery/proxy"
)

// main is our entrypoint
//
// If anything goes wrong before liftoff we say so and stop. A proxy with
// no backend is just a very elaborate 502 generator.
//
// Pro tip: Run with -debug flag for verbose logging:
//
//	./chronoquery -config chronoquery.yaml -debug
func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	configPath := flag.String("config", "", "path to YAML config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config failed: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	if *debug {
		level = log.DebugLevel
		log.SetReportCaller(true)
	}
	log.SetLevel(level)
	proxy.DebugMode = *debug
	if *debug {
		log.Debug("Debug logging enabled")
	}

	loc, _ := cfg.Location()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := backend.NewClient(backend.Options{
		URL:         cfg.Backend.URL,
		Username:    cfg.Backend.Username,
		Password:    cfg.Backend.Password,
		Timeout:     cfg.Timeout(),
		VerifySSL:   cfg.Backend.VerifySSL,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.OpenTimeout(),
	})

	eng := engine.New(engine.Options{
		Dispatcher:    client,
		DatasourceID:  cfg.Backend.DatasourceID,
		MaxDataPoints: cfg.Query.MaxDataPoints,
		Location:      loc,
		Metrics:       engine.NewMetrics(reg),
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           proxy.NewQueryProxy(eng, reg, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithField("backend", cfg.Backend.URL).Infof("🚀 Chronoquery listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

/*
 * This file is part of Speechy (https://github.com/speechy/speechy).
 * Copyright (C) 2025 Speechy
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/speechy/speechy/internal/app"
	"github.com/speechy/speechy/internal/config"
	"github.com/speechy/speechy/internal/logging"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	configPath := getEnv("SPEECHY_CONFIG", config.DefaultPath())

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.LogError(err, "Failed to load configuration")
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		logging.LogError(err, "Failed to build pipeline")
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	if err := a.Start(); err != nil {
		logging.LogError(err, "Failed to start")
		log.Fatalf("Failed to start: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := a.Stop(); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

func getEnv(key string, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

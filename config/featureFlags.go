package config

import (
	"os"
	"strings"
)

// StrictNumericProductCodes rejects non-numeric product codes even for vendor
// profiles that would otherwise allow them. Emergency switch for bad feeds.
//
// Set via env:
// - STRICT_NUMERIC_PRODUCT_CODES=true
func StrictNumericProductCodes() bool {
	return boolFromEnv("STRICT_NUMERIC_PRODUCT_CODES")
}

// RunIngestWorkers controls whether this instance claims queued uploads.
// Disable on API-only replicas so a dedicated worker deployment does the processing.
//
// Set via env:
// - INGEST_WORKERS_ENABLED=false
func RunIngestWorkers() bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv("INGEST_WORKERS_ENABLED")))
	if val == "false" {
		return false
	}
	// Default: run workers in-process. Processing is protected by SKIP LOCKED
	// claims + unique insertion keys, so multiple replicas are safe.
	return true
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

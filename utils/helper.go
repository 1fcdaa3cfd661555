package utils

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"context"

	"bitbucket.org/mmdatafocus/salesfacts_backend/config"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
)

func GenerateUniqueFilename() string {
	timestamp := time.Now().UnixNano()
	randomNum := rand.Intn(1000)
	return fmt.Sprintf("%d_%d", timestamp, randomNum)
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool)
	result := []T{}
	for _, val := range slice {
		if _, ok := seen[val]; !ok {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func NilIfEmpty[T comparable](val T) *T {
	var zero T
	if val == zero {
		return nil
	}
	return &val
}

func ParseDecimal(value string) (decimal.Decimal, error) {
	// Remove any whitespace and check for empty strings
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	// Convert string to decimal
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// TenantLock serializes ingestion per (tenant, reseller). Contention relief only:
// correctness always comes from the fact table's unique keys, never from this lock.
func TenantLock(ctx context.Context, tenantId string, resellerId int, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis is optional in local/dev; skip locking rather than fail.
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("IngestLock:%s:%d", tenantId, resellerId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), 20),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain ingest lock", lockKey, err)
		return nil, errors.New("could not obtain ingest lock for tenant")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining ingest lock", lockKey, err)
		return nil, err
	}
	release := func() {
		_ = lock.Release(context.Background())
	}
	return release, nil
}

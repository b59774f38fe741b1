package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

const cacheKeyPrefix = "conversion:"

// DefaultCacheTTL bounds cached conversions at 30 days.
const DefaultCacheTTL = 30 * 24 * time.Hour

// ContentHash returns the hex sha256 of the raw uploaded bytes. Because the
// key is content-addressed, the cache doubles as duplicate-conversion
// avoidance across identical uploads.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ConversionCache stores prior conversion results keyed by raw-byte hash.
// Every backend error is swallowed and logged: the pipeline's correctness
// is independent of the cache, only its cost.
type ConversionCache struct {
	cache core.Cache
	ttl   time.Duration
}

func NewConversionCache(cache core.Cache, ttl time.Duration) *ConversionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ConversionCache{cache: cache, ttl: ttl}
}

// Get returns the cached conversion for the hash, or nil on miss. Backend
// unavailability and decode failures are both treated as misses.
func (c *ConversionCache) Get(ctx context.Context, contentHash string) *models.CachedConversion {
	if c == nil || c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, cacheKeyPrefix+contentHash)
	if err != nil {
		if !errors.Is(err, core.ErrCacheMiss) {
			log.Printf("WARN: conversion cache get failed, treating as miss: %v", err)
		}
		return nil
	}
	var cached models.CachedConversion
	if err := json.Unmarshal(raw, &cached); err != nil {
		log.Printf("WARN: conversion cache entry for %s is corrupt, treating as miss: %v", contentHash, err)
		return nil
	}
	return &cached
}

// Set stores a conversion result. Failures are logged and dropped.
func (c *ConversionCache) Set(ctx context.Context, contentHash string, res *Result) {
	if c == nil || c.cache == nil || res == nil {
		return
	}
	cached := models.CachedConversion{
		ContentHash:  contentHash,
		Content:      res.Content,
		Metadata:     res.Metadata,
		OriginalType: string(res.OriginalType),
		CachedAt:     time.Now(),
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		log.Printf("WARN: conversion cache encode failed for %s: %v", contentHash, err)
		return
	}
	if err := c.cache.Set(ctx, cacheKeyPrefix+contentHash, raw, c.ttl); err != nil {
		log.Printf("WARN: conversion cache set failed for %s: %v", contentHash, err)
	}
}

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"jobclean/common/cache"
	"jobclean/common/cache/memory"
	"jobclean/common/cache/redis"
	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/config"
	"jobclean/services/pipeline/internal/errors"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobclean/pipeline/api")

type DatasetClient interface {
	// FetchCSV returns the raw CSV body served at url.
	FetchCSV(ctx context.Context, url string) ([]byte, error)
}

type datasetClient struct {
	client *http.Client
	logger *zap.Logger
	config *config.Config
	cache  cache.Cache
}

// NewDatasetCache picks Redis when REDIS_ADDR is set and an in-process cache
// otherwise.
func NewDatasetCache(cfg *config.Config) cache.Cache {
	opts := cache.Options{
		RedisURL:      cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DefaultTTL:    cfg.CacheTTL,
	}
	if cfg.RedisAddr == "" {
		return memory.New(opts)
	}
	return redis.New(opts)
}

func NewDatasetClient(logger *zap.Logger, config *config.Config, c cache.Cache) DatasetClient {
	return &datasetClient{
		client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		logger: logger,
		config: config,
		cache:  c,
	}
}

func cacheKey(url string) string {
	return "dataset:csv:" + url
}

func (c *datasetClient) FetchCSV(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "FetchCSV")
	defer span.End()
	span.SetAttributes(telemetry.String("http.url", url))

	key := cacheKey(url)
	var cached []byte
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		span.SetAttributes(telemetry.String("cache.result", "hit"))
		c.logger.Debug("cache hit for dataset", zap.String("url", url), zap.Int("bytes", len(cached)))
		return cached, nil
	} else if err != cache.ErrNotFound {
		span.SetAttributes(telemetry.String("cache.result", "error"))
		span.RecordError(err)
		c.logger.Warn("cache error for dataset", zap.String("url", url), zap.Error(err))
	} else {
		span.SetAttributes(telemetry.String("cache.result", "miss"))
	}

	c.logger.Debug("cache miss, fetching dataset", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, errors.InvalidInput("creating request", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to execute request", zap.String("url", url), zap.Error(err))
		return nil, errors.Unavailable("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(
		telemetry.Int("http.status_code", resp.StatusCode),
		telemetry.String("http.method", http.MethodGet),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Warn("dataset not found", zap.String("url", url))
		return nil, errors.NotFound(fmt.Sprintf("dataset not found at %s", url), nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Error("dataset host unavailable", zap.Int("status_code", resp.StatusCode))
		return nil, errors.Unavailable(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	default:
		c.logger.Error("unexpected status code", zap.Int("status_code", resp.StatusCode))
		return nil, errors.Internal(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to read response", zap.Error(err))
		return nil, errors.Unavailable("reading response", err)
	}
	span.SetAttributes(telemetry.Int("http.response_size", len(body)))

	c.logger.Debug("successfully fetched dataset", zap.String("url", url), zap.Int("bytes", len(body)))

	if err := c.cache.Set(ctx, key, body, c.config.CacheTTL); err != nil {
		c.logger.Warn("failed to cache dataset", zap.String("url", url), zap.Error(err))
	}

	return body, nil
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/admin-dashboard/internal/config"
)

// recorder tees the response body into a bounded buffer.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.truncated = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// Cache serves repeated reads of slow-changing listings from redis. Only 200
// responses to the configured methods are stored, and bodies above
// MaxBodyBytes are never cached.
func Cache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.AllowsMethod(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodeEntry(raw); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, hdr.Get(echo.HeaderContentType), body)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.truncated {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			entry, err := encodeEntry(rec.status, hdr, rec.buf.Bytes())
			if err == nil {
				err = rdb.Set(context.WithoutCancel(ctx), key, entry, cfg.TTL).Err()
			}
			if err != nil {
				log.Warn("response not cached", slog.String("key", key), slog.Any("error", err))
			}
			return nil
		}
	}
}

// EvictOnWrite drops every cached response of the given routes once the
// wrapped handler has succeeded, so listings reflect the write immediately
// instead of after the TTL.
func EvictOnWrite(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger, routes ...string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil || len(routes) == 0 {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status >= http.StatusBadRequest {
				return nil
			}
			ctx := context.WithoutCancel(c.Request().Context())
			for _, route := range routes {
				if err := evict(ctx, rdb, evictPattern(cfg, route)); err != nil {
					log.Warn("cache eviction failed", slog.String("route", route), slog.Any("error", err))
				}
			}
			return nil
		}
	}
}

func evict(ctx context.Context, rdb *redis.Client, pattern string) error {
	var keys []string
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}

// Keys are <prefix>:<route hash>:<request hash> so one route's entries can be
// matched regardless of query string.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = "route:" + c.Path()
	case "method_route_query":
		tail = "method:" + r.Method + ":route:" + c.Path() + ":q:" + r.URL.RawQuery
	default:
		tail = "route:" + c.Path() + ":q:" + r.URL.RawQuery
	}
	return fmt.Sprintf("%s:%s:%x", cfg.Prefix, routeHash(c.Path()), sha1.Sum([]byte(tail)))
}

func evictPattern(cfg config.CacheConfig, route string) string {
	return fmt.Sprintf("%s:%s:*", cfg.Prefix, routeHash(route))
}

func routeHash(route string) string {
	sum := sha1.Sum([]byte(route))
	return fmt.Sprintf("%x", sum[:8])
}

// encodeEntry lays out [status u32][header len u32][header json][body].
func encodeEntry(status int, hdr http.Header, body []byte) ([]byte, error) {
	h, err := json.Marshal(hdr)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(h)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(h)))
	out = append(out, h...)
	return append(out, body...), nil
}

func decodeEntry(raw []byte) (int, http.Header, []byte, bool) {
	if len(raw) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(raw[0:4]))
	n := int(binary.BigEndian.Uint32(raw[4:8]))
	if n > len(raw)-8 {
		return 0, nil, nil, false
	}
	hdr := http.Header{}
	if n > 0 {
		if err := json.Unmarshal(raw[8:8+n], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, raw[8+n:], true
}

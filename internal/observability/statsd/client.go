// Package statsd emits DogStatsD-style metrics over UDP.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink is what job execution, scheduling and reaping report metrics through.
// A nil *Client satisfies it and drops everything.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes the UDP endpoint and the tags stamped on every metric.
type Config struct {
	Enabled     bool
	Address     string
	Prefix      string
	GlobalTags  map[string]string
	DialTimeout time.Duration // zero means 5s
	Logger      *slog.Logger
}

const (
	metricCounter = "c"
	metricGauge   = "g"
	metricTiming  = "ms"

	defaultDialTimeout = 5 * time.Second
)

// Client writes one datagram per metric. Safe for concurrent use.
type Client struct {
	prefix     string
	globalTags map[string]string
	logger     *slog.Logger

	mu      sync.Mutex
	enabled bool
	conn    net.Conn
	buf     []byte
}

var _ Sink = (*Client)(nil)

// NewClient returns a disabled client when metrics are off or no address is
// configured; otherwise it dials the endpoint.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		prefix:     sanitizePrefix(cfg.Prefix),
		globalTags: cloneTags(cfg.GlobalTags),
		logger:     logger.With("component", "statsd"),
	}

	addr := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || addr == "" {
		return c, nil
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", addr, err)
	}
	c.conn = conn
	c.enabled = true
	return c, nil
}

// Enabled reports whether metrics are actually being sent.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live()
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.send(name, strconv.FormatInt(value, 10), metricCounter, tags)
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.send(name, formatFloat(value), metricGauge, tags)
}

// Timing reports d in fractional milliseconds.
func (c *Client) Timing(name string, d time.Duration, tags map[string]string) {
	c.send(name, formatFloat(float64(d)/float64(time.Millisecond)), metricTiming, tags)
}

// Close stops emission and releases the socket. Calling it twice is fine.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	conn := c.conn
	c.conn = nil
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) live() bool {
	return c.enabled && c.conn != nil
}

func (c *Client) send(name, value, kind string, tags map[string]string) {
	if c == nil {
		return
	}
	metric := c.qualify(name)
	if metric == "" {
		return
	}
	tagSuffix := formatTags(c.globalTags, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live() {
		return
	}
	c.buf = appendLine(c.buf[:0], metric, value, kind, tagSuffix)
	if _, err := c.conn.Write(c.buf); err != nil {
		c.logger.Debug("statsd write failed", "metric", metric, "error", err)
	}
}

func (c *Client) qualify(name string) string {
	n := normalizeMetricName(name)
	switch {
	case n == "":
		return ""
	case c.prefix == "":
		return n
	default:
		return c.prefix + "." + n
	}
}

// appendLine encodes "<metric>:<value>|<kind>[|#tags]" onto dst.
func appendLine(dst []byte, metric, value, kind, tags string) []byte {
	dst = append(dst, metric...)
	dst = append(dst, ':')
	dst = append(dst, value...)
	dst = append(dst, '|')
	dst = append(dst, kind...)
	return append(dst, tags...)
}

func formatLine(metric, value, kind, tags string) string {
	if metric == "" {
		return ""
	}
	return string(appendLine(nil, metric, value, kind, tags))
}

func sanitizePrefix(prefix string) string {
	return strings.Trim(normalizeMetricName(prefix), ".")
}

// Characters that would split a line or confuse common backends.
var metricNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	":", "_",
	"|", "_",
	"@", "_",
	"#", "_",
)

func normalizeMetricName(name string) string {
	n := metricNameReplacer.Replace(strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// Module codes and job names flow into tags, so separators are replaced.
var tagReplacer = strings.NewReplacer(
	",", "_",
	"|", "_",
	"#", "_",
	"\n", "_",
)

func sanitizeTagKey(k string) string {
	k = strings.TrimSpace(k)
	if k == "" {
		return ""
	}
	return strings.ReplaceAll(tagReplacer.Replace(k), ":", "_")
}

func sanitizeTagValue(v string) string {
	return tagReplacer.Replace(strings.TrimSpace(v))
}

// formatTags merges global and per-call tags, per-call winning, and renders
// them sorted by key.
func formatTags(global, local map[string]string) string {
	if len(global)+len(local) == 0 {
		return ""
	}
	merged := make(map[string]string, len(global)+len(local))
	for _, set := range [...]map[string]string{global, local} {
		for k, v := range set {
			if key := sanitizeTagKey(k); key != "" {
				merged[key] = sanitizeTagValue(v)
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("|#")
	for i, k := range slices.Sorted(maps.Keys(merged)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(merged[k])
	}
	return b.String()
}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

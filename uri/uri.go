// Package uri parses the two URI forms ommq accepts for broker
// configuration: a plain "scheme://host:port?opt=val&opt=val" form,
// and a composite "failover://(uri1,uri2,…)?opt=val" form whose inner
// options belong to each child transport and whose outer options
// configure the FailoverTransport layer.
package uri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/corvidmq/ommq/transport/failover"
)

// PlainURI is one non-composite broker address: a transport scheme, a
// host:port, and its query-string options.
type PlainURI struct {
	Scheme  string
	Host    string
	Options url.Values
}

// IsFailover reports whether raw is a composite failover:// URI.
func IsFailover(raw string) bool {
	return strings.HasPrefix(strings.ToLower(raw), "failover://")
}

// ParsePlain parses a single "scheme://host:port?opt=val" URI. Unknown
// options are left in Options rather than rejected.
func ParsePlain(raw string) (*PlainURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("uri: parse %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("uri: %q has no scheme", raw)
	}
	return &PlainURI{Scheme: u.Scheme, Host: u.Host, Options: u.Query()}, nil
}

// FailoverURI is a parsed "failover://(uri1,uri2,…)?opt=val" composite:
// the ordered list of raw child broker URIs (each still needing
// ParsePlain of its own) and the outer failover-layer options.
type FailoverURI struct {
	Children []string
	Options  url.Values
}

// ParseFailover parses a composite failover:// URI. The parenthesized
// child list is optional for a single broker (failover://mock://a is
// equivalent to failover://(mock://a)); without parentheses any query
// string stays with that child and no outer options are set.
func ParseFailover(raw string) (*FailoverURI, error) {
	const prefix = "failover://"
	if !strings.HasPrefix(raw, prefix) {
		return nil, fmt.Errorf("uri: %q is not a failover:// URI", raw)
	}
	rest := raw[len(prefix):]

	var body, query string
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return nil, fmt.Errorf("uri: %q: missing closing ')'", raw)
		}
		body = rest[1:end]
		if tail := rest[end+1:]; strings.HasPrefix(tail, "?") {
			query = tail[1:]
		}
	} else {
		body = rest
	}

	var children []string
	for _, part := range strings.Split(body, ",") {
		if part = strings.TrimSpace(part); part != "" {
			children = append(children, part)
		}
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("uri: %q: no child broker URIs", raw)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("uri: %q: parse query: %w", raw, err)
	}
	return &FailoverURI{Children: children, Options: values}, nil
}

// Config builds a failover.Config from the outer options, starting from
// failover.DefaultConfig and overriding whichever recognized options are
// present. Unrecognized options are ignored.
func (f *FailoverURI) Config() (failover.Config, error) {
	cfg := failover.DefaultConfig()
	opt := f.Options

	var err error
	if v := opt.Get("randomize"); v != "" {
		if cfg.Randomize, err = parseBool("randomize", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("initialReconnectDelay"); v != "" {
		if cfg.InitialReconnectDelay, err = parseMillis("initialReconnectDelay", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("maxReconnectDelay"); v != "" {
		if cfg.MaxReconnectDelay, err = parseMillis("maxReconnectDelay", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("useExponentialBackOff"); v != "" {
		if cfg.UseExponentialBackOff, err = parseBool("useExponentialBackOff", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("backOffMultiplier"); v != "" {
		if cfg.BackOffMultiplier, err = parseFloat("backOffMultiplier", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("maxReconnectAttempts"); v != "" {
		if cfg.MaxReconnectAttempts, err = parseInt("maxReconnectAttempts", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("startupMaxReconnectAttempts"); v != "" {
		if cfg.StartupMaxReconnectAttempts, err = parseInt("startupMaxReconnectAttempts", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("backup"); v != "" {
		if cfg.Backup, err = parseBool("backup", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("backupPoolSize"); v != "" {
		if cfg.BackupPoolSize, err = parseInt("backupPoolSize", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("trackMessages"); v != "" {
		if cfg.TrackMessages, err = parseBool("trackMessages", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("maxCacheSize"); v != "" {
		if cfg.MaxCacheSize, err = parseInt("maxCacheSize", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("timeout"); v != "" {
		if cfg.Timeout, err = parseMillis("timeout", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("priorityBackup"); v != "" {
		if cfg.PriorityBackup, err = parseBool("priorityBackup", v); err != nil {
			return cfg, err
		}
	}
	if v := opt.Get("priorityURIs"); v != "" {
		cfg.PriorityURIs = splitList(v)
	}
	if v := opt.Get("updateURIsSupported"); v != "" {
		if cfg.UpdateURIsSupported, err = parseBool("updateURIsSupported", v); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(name, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("uri: option %s=%q: %w", name, v, err)
	}
	return b, nil
}

func parseInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("uri: option %s=%q: %w", name, v, err)
	}
	return n, nil
}

func parseFloat(name, v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("uri: option %s=%q: %w", name, v, err)
	}
	return n, nil
}

// parseMillis parses an option given in milliseconds (e.g.
// initialReconnectDelay=100).
func parseMillis(name, v string) (time.Duration, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("uri: option %s=%q: %w", name, v, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

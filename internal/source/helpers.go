package source

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// permanentError stops retry immediately
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retry runs fn with exponential backoff until it succeeds, returns a
// permanent error, the attempts run out or ctx is done
func retry(ctx context.Context, attempts int, initial, maxDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	d := initial
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return context.Cause(ctx)
			}
			d = min(d*2, maxDelay)
		}

		err = fn()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
	}
	return err
}

func defaultDur(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// lookup resolves a dotted path such as "venue.name" in a decoded JSON object
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// pickStr returns the first non-empty scalar found at the given paths
func pickStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookup(m, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case json.Number:
			return t.String()
		case map[string]any:
			// objects such as {"venue": {"name": "..."}} fall back to their name
			if s := pickStr(t, "name", "title"); s != "" {
				return s
			}
		}
	}
	return ""
}

// pickStrings returns the first non-empty string list found at the given
// paths; a single string is split on commas
func pickStrings(m map[string]any, paths ...string) []string {
	for _, p := range paths {
		v, ok := lookup(m, p)
		if !ok {
			continue
		}
		var out []string
		switch t := v.(type) {
		case string:
			for _, s := range strings.Split(t, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		case []any:
			for _, item := range t {
				switch it := item.(type) {
				case string:
					if s := strings.TrimSpace(it); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					if s := pickStr(it, "name", "title", "label"); s != "" {
						out = append(out, s)
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

package fetcher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// BuildCookieHeader assembles the Cookie header value sent with every
// request. rawJSON takes precedence when it parses: it may be an array of
// {name, value} objects (browser export format) or a flat name->value
// object. A parse failure logs a warning and falls back to the raw header
// string.
func BuildCookieHeader(raw, rawJSON string, logger *slog.Logger) string {
	if rawJSON == "" {
		return strings.TrimSpace(raw)
	}

	var pairs []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &pairs); err == nil {
		parts := make([]string, 0, len(pairs))
		for _, c := range pairs {
			if c.Name != "" {
				parts = append(parts, c.Name+"="+c.Value)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	var flat map[string]any
	if err := json.Unmarshal([]byte(rawJSON), &flat); err == nil {
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, flat[k]))
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	logger.Warn("failed to parse cookies_json, falling back to raw cookie string")
	return strings.TrimSpace(raw)
}

package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// coerceToJSONBytes converts a YAML config to JSON bytes so the strict
// JSON decoder (DisallowUnknownFields) covers both formats.
//
// Returns (jsonBytes, format, err) where format is "json" or "yaml".
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, "json", nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}

	v = normalizeYAML(v)

	j, err := json.Marshal(v)
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

// ParseDurationField parses a config duration string. Empty means zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for
// omitted or zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Validate rejects configs that cannot produce a working daemon. It
// runs before a reload is committed so a bad edit never replaces a
// good runtime config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Collector.Enabled && len(cfg.Collector.Paths) == 0 {
		return fmt.Errorf("collector.enabled requires at least one collector.paths entry")
	}
	for i, p := range cfg.Collector.Paths {
		if strings.TrimSpace(p.Source) == "" || strings.TrimSpace(p.Dest) == "" {
			return fmt.Errorf("collector.paths[%d]: source and dest are required", i)
		}
		switch strings.ToLower(strings.TrimSpace(p.PathType)) {
		case "", "direct", "switch", "nfs", "unknown":
		default:
			return fmt.Errorf("collector.paths[%d]: invalid path_type %q", i, p.PathType)
		}
	}

	durations := []struct{ path, raw string }{
		{"collector.iperf_duration", cfg.Collector.IperfDuration},
		{"ssh.connect_timeout", cfg.SSH.ConnectTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"storage.retention", cfg.Storage.Retention},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if cfg.SSH.Port < 0 || cfg.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port: out of range")
	}
	return nil
}

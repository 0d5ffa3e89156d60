package config

// Config is the daemon configuration. Config files are YAML or JSON;
// YAML is coerced to JSON so both share one strict decoder. All
// duration fields are Go duration strings (e.g. "10s", "1m").
type Config struct {
	Logging     LoggingConfig     `json:"logging"`
	Collector   CollectorConfig   `json:"collector"`
	SSH         SSHConfig         `json:"ssh,omitempty"`
	Storage     StorageConfig     `json:"storage,omitempty"`
	Egress      EgressConfig      `json:"egress,omitempty"`
	Metrics     MetricsConfig     `json:"metrics,omitempty"`
	Diagnostics DiagnosticsConfig `json:"diagnostics,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PathEntry identifies one monitored host-to-host path.
type PathEntry struct {
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	PathType string `json:"path_type,omitempty"` // direct | switch | unknown
	User     string `json:"user,omitempty"`      // SSH user override for this path
}

// CollectorConfig controls the periodic measurement pass.
//
// Defaults (when fields are omitted/zero):
//   - schedule: "@every 1h"
//   - ping_count: 10
//   - iperf_duration: "10s"
//   - quick_size_mb: 50
//   - num_files: 3, file_size_mb: 10 (full test payload)
//   - parallelism: 2
//   - cmd_rate_per_sec: 2
type CollectorConfig struct {
	Enabled  bool        `json:"enabled"`
	Schedule string      `json:"schedule,omitempty"`
	Paths    []PathEntry `json:"paths"`

	PingCount int `json:"ping_count,omitempty"`

	// FullTest runs the three-phase benchmark; otherwise quick mode
	// (iperf3, falling back to an SSH stream) is used.
	FullTest      bool   `json:"full_test,omitempty"`
	IperfDuration string `json:"iperf_duration,omitempty"`
	QuickSizeMB   int    `json:"quick_size_mb,omitempty"`
	NumFiles      int    `json:"num_files,omitempty"`
	FileSizeMB    int    `json:"file_size_mb,omitempty"`

	Parallelism   int     `json:"parallelism,omitempty"`
	CmdRatePerSec float64 `json:"cmd_rate_per_sec,omitempty"`
}

// SSHConfig holds transport defaults shared by all paths.
type SSHConfig struct {
	User           string `json:"user,omitempty"`
	Port           int    `json:"port,omitempty"`     // default 22
	KeyFile        string `json:"key_file,omitempty"` // default ~/.ssh/id_rsa
	ConnectTimeout string `json:"connect_timeout,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./netmond.db", "retention": "2160h" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" (default) or "none"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`

	// Retention prunes rows older than this; "0s" disables pruning.
	// Default 90 days.
	Retention     string `json:"retention,omitempty"`
	PruneSchedule string `json:"prune_schedule,omitempty"` // default "@daily"
}

// EgressConfig controls the WAN uplink measurement.
type EgressConfig struct {
	Enabled         bool   `json:"enabled"`
	Schedule        string `json:"schedule,omitempty"` // default "@daily"
	ServerCount     int    `json:"server_count,omitempty"`
	FullTestServers int    `json:"full_test_servers,omitempty"`
	PacketLoss      bool   `json:"packet_loss,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default ":9435"
}

// DiagnosticsConfig tunes the on-demand analysis. Threshold overrides
// left at zero keep the built-in defaults.
type DiagnosticsConfig struct {
	HistoryHours int `json:"history_hours,omitempty"` // default 168

	LossHighPct       float64 `json:"loss_high_pct,omitempty"`
	LossElevatedPct   float64 `json:"loss_elevated_pct,omitempty"`
	LatencyHighMS     float64 `json:"latency_high_ms,omitempty"`
	LatencyElevatedMS float64 `json:"latency_elevated_ms,omitempty"`
	JitterHighMS      float64 `json:"jitter_high_ms,omitempty"`
	RetransHigh       int64   `json:"retrans_high,omitempty"`
	RetransElevated   int64   `json:"retrans_elevated,omitempty"`
	ThroughputLowMbps float64 `json:"throughput_low_mbps,omitempty"`
}

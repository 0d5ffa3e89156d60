package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (the default)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// PerfRow is one persisted collection result, flattened the way the
// time-series table stores it: the representative (hot, else cold)
// throughput only. Diagnostics consume these rows.
type PerfRow struct {
	ID         int64
	Timestamp  time.Time
	SourceHost string
	DestHost   string
	PathType   string
	Status     string

	PingMinMS   float64
	PingAvgMS   float64
	PingMaxMS   float64
	PingMdevMS  float64
	PingLossPct float64

	ThroughputMbps   float64
	BytesTransferred int64
	TCPRetrans       int64
	Estimated        bool
}

// EgressRow is one WAN egress (uplink) measurement.
type EgressRow struct {
	ID            int64
	Timestamp     time.Time
	DownloadMbps  float64
	UploadMbps    float64
	PingMS        float64
	JitterMS      float64
	PacketLossPct float64
	ServerName    string
	ServerCountry string
}

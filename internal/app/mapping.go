package app

import (
	"time"

	"netmond/internal/analysis"
	"netmond/internal/collector"
	"netmond/internal/config"
	"netmond/internal/diagnose"
	"netmond/internal/egress"
	"netmond/internal/remote"
	"netmond/internal/storage"
)

// Mapping from file config to component configs. Kept in one place so
// the daemon and the one-shot CLI agree on defaults.

func MapCollectorConfig(cfg *config.Config) (collector.Config, error) {
	iperfDur, err := config.ParseDurationOrDefault(
		"collector.iperf_duration", cfg.Collector.IperfDuration, 10*time.Second)
	if err != nil {
		return collector.Config{}, err
	}
	sshCfg, err := MapSSHConfig(cfg)
	if err != nil {
		return collector.Config{}, err
	}

	paths := make([]collector.PathConfig, 0, len(cfg.Collector.Paths))
	for _, p := range cfg.Collector.Paths {
		paths = append(paths, collector.PathConfig{
			Source:   p.Source,
			Dest:     p.Dest,
			PathType: p.PathType,
			User:     p.User,
		})
	}

	return collector.Config{
		Paths:         paths,
		PingCount:     cfg.Collector.PingCount,
		FullTest:      cfg.Collector.FullTest,
		IperfDuration: iperfDur,
		QuickSizeMB:   cfg.Collector.QuickSizeMB,
		NumFiles:      cfg.Collector.NumFiles,
		FileSizeMB:    cfg.Collector.FileSizeMB,
		Parallelism:   cfg.Collector.Parallelism,
		CmdRate:       cfg.Collector.CmdRatePerSec,
		SSH:           sshCfg,
	}, nil
}

func MapSSHConfig(cfg *config.Config) (remote.SSHConfig, error) {
	connectTimeout, err := config.ParseDurationOrDefault(
		"ssh.connect_timeout", cfg.SSH.ConnectTimeout, 10*time.Second)
	if err != nil {
		return remote.SSHConfig{}, err
	}
	return remote.SSHConfig{
		User:           cfg.SSH.User,
		Port:           cfg.SSH.Port,
		KeyFile:        cfg.SSH.KeyFile,
		ConnectTimeout: connectTimeout,
	}, nil
}

func MapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault(
		"storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	path := cfg.Storage.Path
	if path == "" {
		path = "./netmond.db"
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        path,
		BusyTimeout: busy,
	}, nil
}

func MapEgressConfig(cfg *config.Config) egress.Config {
	return egress.Config{
		Enabled:           cfg.Egress.Enabled,
		ServerCount:       cfg.Egress.ServerCount,
		FullTestServers:   cfg.Egress.FullTestServers,
		PacketLossEnabled: cfg.Egress.PacketLoss,
	}
}

func MapDiagnoseConfig(cfg *config.Config) diagnose.Config {
	d := cfg.Diagnostics
	return diagnose.Config{
		HistoryHours: d.HistoryHours,
		Thresholds: diagnose.Thresholds{
			LossHighPct:       d.LossHighPct,
			LossElevatedPct:   d.LossElevatedPct,
			LatencyHighMS:     d.LatencyHighMS,
			LatencyElevatedMS: d.LatencyElevatedMS,
			JitterHighMS:      d.JitterHighMS,
			RetransHigh:       d.RetransHigh,
			RetransElevated:   d.RetransElevated,
			ThroughputLowMbps: d.ThroughputLowMbps,
		},
		Trend: analysis.DefaultTrendConfig(),
	}
}

// RetentionCutoff returns the prune cutoff, or zero time when pruning
// is disabled.
func RetentionCutoff(cfg *config.Config, now time.Time) (time.Time, error) {
	raw := cfg.Storage.Retention
	if raw == "" {
		raw = "2160h" // 90 days
	}
	ret, err := config.ParseDurationField("storage.retention", raw)
	if err != nil {
		return time.Time{}, err
	}
	if ret <= 0 {
		return time.Time{}, nil
	}
	return now.Add(-ret), nil
}

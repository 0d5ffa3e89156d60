// Package egress measures the cluster's WAN uplink with speedtest.net
// servers. The uplink is itself a monitored path: a saturated or
// degraded egress shows up here before users report slow transfers out
// of the cluster.
package egress

import (
	"context"
	"fmt"
	"math"
	"net"
	"sort"
	"sync"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"

	"netmond/internal/storage"
	"netmond/pkg/logx"
)

// Config controls one egress measurement. Zero fields take defaults.
type Config struct {
	Enabled bool

	// ServerCount candidates are sorted by distance and pinged;
	// the FullTestServers lowest-latency ones get a full
	// download/upload test, sequentially, and results are averaged.
	ServerCount     int // default 5
	FullTestServers int // default 1

	MaxConnections  int // per-test connections, default 4
	PingConcurrency int // default 4

	PacketLossEnabled bool
	PacketLossTimeout time.Duration // default 3s
}

func (c Config) withDefaults() Config {
	if c.ServerCount <= 0 {
		c.ServerCount = 5
	}
	if c.FullTestServers <= 0 {
		c.FullTestServers = 1
	}
	if c.FullTestServers > c.ServerCount {
		c.FullTestServers = c.ServerCount
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 4
	}
	if c.PingConcurrency <= 0 {
		c.PingConcurrency = 4
	}
	if c.PacketLossTimeout <= 0 {
		c.PacketLossTimeout = 3 * time.Second
	}
	return c
}

// Measurer runs egress tests and persists results. A nil store is
// allowed; results are then only returned.
type Measurer struct {
	cfg   Config
	store storage.Store
	log   logx.Logger
}

func New(cfg Config, store storage.Store, log logx.Logger) *Measurer {
	return &Measurer{cfg: cfg.withDefaults(), store: store, log: log}
}

// Measure runs one egress test and persists the row.
func (m *Measurer) Measure(ctx context.Context) (*storage.EgressRow, error) {
	row, err := m.run(ctx)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.InsertEgress(ctx, *row); err != nil {
			m.log.Error("persist egress result failed", logx.Err(err))
		}
	}
	m.log.Info("egress measured",
		logx.Float64("download_mbps", row.DownloadMbps),
		logx.Float64("upload_mbps", row.UploadMbps),
		logx.Float64("ping_ms", row.PingMS),
		logx.String("server", row.ServerName))
	return row, nil
}

type serverResult struct {
	server   *st.Server
	download float64
	upload   float64
	ping     time.Duration
}

func (m *Measurer) run(ctx context.Context) (*storage.EgressRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = runCtx

	stc := st.New(st.WithUserConfig(&st.UserConfig{
		MaxConnections: m.cfg.MaxConnections,
	}))
	stc.SetNThread(m.cfg.MaxConnections)
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no speedtest servers available")
	}

	// Cheap filter first: distance.
	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	n := m.cfg.ServerCount
	if n > len(servers) {
		n = len(servers)
	}

	pinged := pingCandidates(ctx, servers[:n], m.cfg.PingConcurrency)
	if len(pinged) == 0 {
		return nil, fmt.Errorf("all latency tests failed")
	}
	sort.Slice(pinged, func(i, j int) bool { return pinged[i].Latency < pinged[j].Latency })

	fullN := m.cfg.FullTestServers
	if fullN > len(pinged) {
		fullN = len(pinged)
	}

	// Full tests run sequentially to keep peak memory and uplink
	// contention down.
	results := make([]serverResult, 0, fullN)
	for _, s := range pinged[:fullN] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.DownloadTestContext(ctx); err != nil {
			m.log.Warn("download test failed", logx.String("server", s.Sponsor), logx.Err(err))
			continue
		}
		dl := s.DLSpeed.Mbps()
		if err := s.UploadTestContext(ctx); err != nil {
			m.log.Warn("upload test failed", logx.String("server", s.Sponsor), logx.Err(err))
			continue
		}
		results = append(results, serverResult{
			server:   s,
			download: dl,
			upload:   s.ULSpeed.Mbps(),
			ping:     s.Latency,
		})
		stc.Snapshots().Clean()
		stc.Reset()
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("full test failed for all servers")
	}

	avgDL, avgUL, avgPing := average(results)
	chosen := findBest(results)

	pl := 0.0
	if m.cfg.PacketLossEnabled {
		pl = m.packetLoss(ctx, chosen.server.Host)
	}

	jitterMS := float64(chosen.server.Jitter.Milliseconds())
	if jitterMS <= 0 {
		jitterMS = math.Max(0.1, float64(avgPing.Milliseconds())*0.1)
	}

	return &storage.EgressRow{
		Timestamp:     time.Now(),
		DownloadMbps:  avgDL,
		UploadMbps:    avgUL,
		PingMS:        float64(avgPing.Milliseconds()),
		JitterMS:      jitterMS,
		PacketLossPct: pl,
		ServerName:    chosen.server.Sponsor,
		ServerCountry: chosen.server.Country,
	}, nil
}

func pingCandidates(ctx context.Context, servers []*st.Server, concurrency int) []*st.Server {
	sem := make(chan struct{}, concurrency)
	out := make(chan *st.Server, len(servers))
	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)
		go func(s *st.Server) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			if err := s.PingTestContext(ctx, nil); err == nil && s.Latency > 0 {
				out <- s
			}
		}(s)
	}
	wg.Wait()
	close(out)

	pinged := make([]*st.Server, 0, len(servers))
	for s := range out {
		pinged = append(pinged, s)
	}
	return pinged
}

func average(results []serverResult) (dl, ul float64, ping time.Duration) {
	for _, r := range results {
		dl += r.download
		ul += r.upload
		ping += r.ping
	}
	n := len(results)
	return dl / float64(n), ul / float64(n), ping / time.Duration(n)
}

// findBest prefers lower ping, then higher download.
func findBest(results []serverResult) *serverResult {
	best := &results[0]
	for i := 1; i < len(results); i++ {
		if results[i].ping < best.ping ||
			(results[i].ping == best.ping && results[i].download > best.download) {
			best = &results[i]
		}
	}
	return best
}

func (m *Measurer) packetLoss(ctx context.Context, host string) float64 {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return 0
	}
	plCtx, cancel := context.WithTimeout(ctx, m.cfg.PacketLossTimeout)
	defer cancel()

	pla := st.NewPacketLossAnalyzer(nil)
	pl, err := pla.RunMultiWithContext(plCtx, []string{host})
	if err != nil || pl == nil {
		return 0
	}
	return pl.LossPercent()
}

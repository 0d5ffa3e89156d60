package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"netmond/internal/netperf"
	"netmond/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// timeFormat is fixed-width so lexicographic comparison in SQL matches
// chronological order (RFC3339Nano trims trailing zeros and would not).
// Timestamps are stored in UTC.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) InsertRecord(ctx context.Context, rec netperf.Record) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var rate float64
	var bytes, retrans int64
	estimated := false
	if tp := rec.BestThroughput(); tp != nil {
		rate = tp.RateMbps
		bytes = tp.BytesTransferred
		retrans = tp.TCPRetrans
		estimated = tp.Estimated
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO network_perf(
			timestamp, source_host, dest_host, path_type, status,
			ping_min_ms, ping_avg_ms, ping_max_ms, ping_mdev_ms, ping_loss_pct,
			throughput_mbps, bytes_transferred, tcp_retrans, estimated)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.UTC().Format(timeFormat), rec.SourceHost, rec.DestHost, string(rec.PathType), string(rec.Status),
		rec.Ping.MinMS, rec.Ping.AvgMS, rec.Ping.MaxMS, rec.Ping.MdevMS, rec.Ping.LossPct,
		rate, bytes, retrans, boolInt(estimated),
	)
	return err
}

const perfColumns = `id, timestamp, source_host, dest_host, path_type, status,
	ping_min_ms, ping_avg_ms, ping_max_ms, ping_mdev_ms, ping_loss_pct,
	throughput_mbps, bytes_transferred, tcp_retrans, estimated`

func (s *sqliteStore) LatestRecord(ctx context.Context, source, dest string) (*PerfRow, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT ` + perfColumns + ` FROM network_perf`
	where, args := pathFilter(source, dest, nil)
	q += where + ` ORDER BY timestamp DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, q, args...)
	pr, err := scanPerfRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func (s *sqliteStore) RecordsSince(ctx context.Context, source, dest string, since time.Time) ([]PerfRow, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT ` + perfColumns + ` FROM network_perf`
	where, args := pathFilter(source, dest, &since)
	q += where + ` ORDER BY timestamp DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PerfRow
	for rows.Next() {
		pr, err := scanPerfRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pr)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM network_perf WHERE timestamp < ?`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.log.Debug("pruned old perf rows", logx.Int64("rows", n))
	}
	return n, nil
}

func (s *sqliteStore) InsertEgress(ctx context.Context, r EgressRow) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO egress_perf(
			timestamp, download_mbps, upload_mbps, ping_ms, jitter_ms,
			packet_loss_pct, server_name, server_country)
		 VALUES(?,?,?,?,?,?,?,?)`,
		ts.UTC().Format(timeFormat), r.DownloadMbps, r.UploadMbps, r.PingMS, r.JitterMS,
		r.PacketLossPct, nullStr(r.ServerName), nullStr(r.ServerCountry),
	)
	return err
}

func (s *sqliteStore) RecentEgress(ctx context.Context, limit int) ([]EgressRow, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, download_mbps, upload_mbps, ping_ms, jitter_ms,
			packet_loss_pct, COALESCE(server_name, ''), COALESCE(server_country, '')
		 FROM egress_perf ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EgressRow
	for rows.Next() {
		var r EgressRow
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.DownloadMbps, &r.UploadMbps, &r.PingMS,
			&r.JitterMS, &r.PacketLossPct, &r.ServerName, &r.ServerCountry); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(timeFormat, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// pathFilter builds the WHERE clause shared by the query paths.
// Empty source/dest match any path.
func pathFilter(source, dest string, since *time.Time) (string, []any) {
	var conds []string
	var args []any
	if source != "" {
		conds = append(conds, "source_host = ?")
		args = append(args, source)
	}
	if dest != "" {
		conds = append(conds, "dest_host = ?")
		args = append(args, dest)
	}
	if since != nil {
		conds = append(conds, "timestamp > ?")
		args = append(args, since.UTC().Format(timeFormat))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerfRow(sc scanner) (*PerfRow, error) {
	var r PerfRow
	var ts string
	var est int
	err := sc.Scan(&r.ID, &ts, &r.SourceHost, &r.DestHost, &r.PathType, &r.Status,
		&r.PingMinMS, &r.PingAvgMS, &r.PingMaxMS, &r.PingMdevMS, &r.PingLossPct,
		&r.ThroughputMbps, &r.BytesTransferred, &r.TCPRetrans, &est)
	if err != nil {
		return nil, err
	}
	r.Timestamp, _ = time.Parse(timeFormat, ts)
	r.Estimated = est != 0
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketSleuth/internal/domain/models"
	"MarketSleuth/pkg/clickhouse"
	"MarketSleuth/pkg/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		symbol           LowCardinality(String),
		ts               DateTime64(3, 'UTC'),
		total_score      Float64,
		triggered        UInt8,
		price            Float64,
		price_change_pct Float64,
		volume_ratio     Float64,
		rsi              Float64,
		volatility       Float64,
		gap_pct          Float64,
		factor_scores    String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 180 DAY`,

	`CREATE TABLE IF NOT EXISTS investigations (
		symbol       LowCardinality(String),
		started_at   DateTime64(3, 'UTC'),
		completed_at DateTime64(3, 'UTC'),
		status       LowCardinality(String),
		confidence   Float64,
		iterations   UInt32,
		root_cause   String,
		queries      String,
		evidence     String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(started_at)
	ORDER BY (symbol, started_at)
	TTL toDateTime(started_at) + INTERVAL 365 DAY`,
}

// ClickHouseStore persists signals and terminal investigations.
type ClickHouseStore struct {
	client *clickhouse.Client
	log    *logger.Logger
}

func NewClickHouseStore(client *clickhouse.Client, log *logger.Logger) *ClickHouseStore {
	return &ClickHouseStore{client: client, log: log}
}

// Init ensures the schema exists. Idempotent.
func (s *ClickHouseStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements)
}

func (s *ClickHouseStore) StoreSignal(ctx context.Context, sig *models.AnomalySignal) error {
	factors, err := json.Marshal(sig.FactorScores)
	if err != nil {
		return fmt.Errorf("marshal factor scores: %w", err)
	}

	triggered := uint8(0)
	if sig.Triggered {
		triggered = 1
	}
	_, err = s.client.DB().ExecContext(ctx,
		`INSERT INTO signals
			(symbol, ts, total_score, triggered, price, price_change_pct,
			 volume_ratio, rsi, volatility, gap_pct, factor_scores)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, sig.Timestamp, sig.TotalScore, triggered, sig.Price,
		sig.PriceChangePct, sig.VolumeRatio, sig.RSI, sig.Volatility,
		sig.GapPct, string(factors))
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreInvestigation(ctx context.Context, inv *models.InvestigationState) error {
	queries, err := json.Marshal(inv.QueriesIssued)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	ev, err := json.Marshal(inv.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	completed := inv.StartedAt
	if inv.CompletedAt != nil {
		completed = *inv.CompletedAt
	}
	_, err = s.client.DB().ExecContext(ctx,
		`INSERT INTO investigations
			(symbol, started_at, completed_at, status, confidence,
			 iterations, root_cause, queries, evidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Symbol, inv.StartedAt, completed, string(inv.Status),
		inv.Confidence, uint32(inv.Iteration), inv.RootCause,
		string(queries), string(ev))
	if err != nil {
		return fmt.Errorf("insert investigation: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.AnomalySignal, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT symbol, ts, total_score, triggered, price, price_change_pct,
		volume_ratio, rsi, volatility, gap_pct, factor_scores
		FROM signals`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []*models.AnomalySignal
	for rows.Next() {
		var sig models.AnomalySignal
		var triggered uint8
		var ts time.Time
		var factors string
		if err := rows.Scan(&sig.Symbol, &ts, &sig.TotalScore, &triggered,
			&sig.Price, &sig.PriceChangePct, &sig.VolumeRatio, &sig.RSI,
			&sig.Volatility, &sig.GapPct, &factors); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Timestamp = ts
		sig.Triggered = triggered == 1
		if err := json.Unmarshal([]byte(factors), &sig.FactorScores); err != nil {
			s.log.Warn("bad factor scores row", logger.String("symbol", sig.Symbol), logger.Error(err))
			sig.FactorScores = map[string]float64{}
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) RecentInvestigations(ctx context.Context, symbol, status string, limit int) ([]*models.InvestigationState, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT symbol, started_at, completed_at, status, confidence,
		iterations, root_cause, queries, evidence
		FROM investigations WHERE 1 = 1`
	args := []any{}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query investigations: %w", err)
	}
	defer rows.Close()

	var out []*models.InvestigationState
	for rows.Next() {
		var inv models.InvestigationState
		var st string
		var iterations uint32
		var completed time.Time
		var queries, ev string
		if err := rows.Scan(&inv.Symbol, &inv.StartedAt, &completed, &st,
			&inv.Confidence, &iterations, &inv.RootCause, &queries, &ev); err != nil {
			return nil, fmt.Errorf("scan investigation: %w", err)
		}
		inv.Status = models.Status(st)
		inv.Iteration = int(iterations)
		inv.CompletedAt = &completed
		if err := json.Unmarshal([]byte(queries), &inv.QueriesIssued); err != nil {
			inv.QueriesIssued = nil
		}
		if err := json.Unmarshal([]byte(ev), &inv.Evidence); err != nil {
			inv.Evidence = nil
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}

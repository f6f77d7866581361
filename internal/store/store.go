// Package store provides SQLite-backed persistence for energy sessions,
// crypto sales, and rolled-up period summaries.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"wattmon/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store wraps the session database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendSession persists a closed session. A missing SessionID is filled in
// with a fresh UUID, and the stored id is written back to the argument.
func (s *Store) AppendSession(sess *model.EnergySession) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.NewString()
	}

	detail, err := json.Marshal(sess.CostDetail)
	if err != nil {
		return fmt.Errorf("encoding cost detail: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO energy_sessions
		(session_id, device_id, device_name, location, start_time, end_time,
		 energy_kwh, cost_rub, tariff_type, day_energy_kwh, night_energy_kwh,
		 cost_detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.DeviceID, sess.DeviceName, sess.Location,
		sess.StartTime.UTC().Format(time.RFC3339Nano),
		sess.EndTime.UTC().Format(time.RFC3339Nano),
		sess.EnergyKWh, sess.CostRUB, sess.TariffType,
		sess.DayEnergyKWh, sess.NightEnergyKWh,
		string(detail), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

const sessionColumns = `session_id, device_id, device_name, location,
	start_time, end_time, energy_kwh, cost_rub, tariff_type,
	day_energy_kwh, night_energy_kwh, cost_detail`

func scanSessions(rows *sql.Rows) ([]model.EnergySession, error) {
	defer func() { _ = rows.Close() }()

	var result []model.EnergySession
	for rows.Next() {
		var sess model.EnergySession
		var start, end, detail string
		if err := rows.Scan(&sess.SessionID, &sess.DeviceID, &sess.DeviceName,
			&sess.Location, &start, &end, &sess.EnergyKWh, &sess.CostRUB,
			&sess.TariffType, &sess.DayEnergyKWh, &sess.NightEnergyKWh,
			&detail); err != nil {
			return nil, err
		}
		sess.StartTime, _ = time.Parse(time.RFC3339Nano, start)
		sess.EndTime, _ = time.Parse(time.RFC3339Nano, end)
		if detail != "" {
			_ = json.Unmarshal([]byte(detail), &sess.CostDetail)
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// SessionsBetween returns sessions with start_time in [start, end), oldest
// first.
func (s *Store) SessionsBetween(start, end time.Time) ([]model.EnergySession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM energy_sessions
		 WHERE start_time >= ? AND start_time < ?
		 ORDER BY start_time`,
		start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// RecentSessions returns the newest sessions, newest first, up to limit.
func (s *Store) RecentSessions(limit int) ([]model.EnergySession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM energy_sessions
		 ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// MonthlyBaseline sums a device's session energy from monthStart up to (but
// excluding) sessions starting at or after before. It feeds tier selection
// for the next session of the month.
func (s *Store) MonthlyBaseline(deviceID string, monthStart, before time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT SUM(energy_kwh) FROM energy_sessions
		 WHERE device_id = ? AND start_time >= ? AND start_time < ?`,
		deviceID,
		monthStart.UTC().Format(time.RFC3339Nano),
		before.UTC().Format(time.RFC3339Nano)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM energy_sessions").Scan(&n)
	return n, err
}

// UpsertSale records a sale, replacing any earlier row with the same order id.
func (s *Store) UpsertSale(sale model.SaleRecord) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sales
		(order_id, currency, amount_sold, total_received, avg_price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.OrderID, sale.Currency, sale.AmountSold, sale.TotalReceived,
		sale.AvgPrice, sale.ExecutedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}
	return nil
}

// SalesBetween returns sales executed in [start, end), oldest first.
func (s *Store) SalesBetween(start, end time.Time) ([]model.SaleRecord, error) {
	rows, err := s.db.Query(
		`SELECT order_id, currency, amount_sold, total_received, avg_price, executed_at
		 FROM sales WHERE executed_at >= ? AND executed_at < ?
		 ORDER BY executed_at`,
		start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []model.SaleRecord
	for rows.Next() {
		var sale model.SaleRecord
		var executed string
		if err := rows.Scan(&sale.OrderID, &sale.Currency, &sale.AmountSold,
			&sale.TotalReceived, &sale.AvgPrice, &executed); err != nil {
			return nil, err
		}
		sale.ExecutedAt, _ = time.Parse(time.RFC3339Nano, executed)
		result = append(result, sale)
	}
	return result, rows.Err()
}

// SavePeriodSummary stores a rolled-up summary, replacing any earlier rollup
// for the same period.
func (s *Store) SavePeriodSummary(sum model.PeriodSummary) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO period_summaries
		(period_name, period_start, period_end, total_cost_rub, income_usdt,
		 income_rub, net_profit_rub, session_count, sales_count, exchange_rate,
		 computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.PeriodName,
		sum.Start.UTC().Format(time.RFC3339Nano),
		sum.End.UTC().Format(time.RFC3339Nano),
		sum.TotalCostRUB, sum.TotalIncomeUSDT, sum.TotalIncomeRUB,
		sum.NetProfitRUB, sum.SessionCount, sum.SalesCount, sum.ExchangeRate,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}
	return nil
}

// Package storage persists market data and strategy sync state in DuckDB.
// The same store backs live recording, warm-up history and backtest input.
package storage

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"go.uber.org/zap"
)

// InMemoryPath opens the store without a backing file.
const InMemoryPath = ":memory:"

// Store is a DuckDB-backed persistence layer.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewStore opens (or creates) the database at path and prepares the schema.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to open database", err)
	}

	s := &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			exchange TEXT,
			interval TEXT,
			timestamp TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, interval, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS ticks (
			symbol TEXT,
			exchange TEXT,
			timestamp TIMESTAMP,
			last_price DOUBLE,
			volume DOUBLE,
			bid_price DOUBLE,
			bid_volume DOUBLE,
			ask_price DOUBLE,
			ask_volume DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS strategy_sync (
			strategy_name TEXT PRIMARY KEY,
			pos DOUBLE,
			updated_at TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to create schema", err)
		}
	}

	return nil
}

// InsertBar writes one bar, replacing any bar already stored for the same
// symbol, interval and timestamp.
func (s *Store) InsertBar(bar types.Bar) error {
	query := s.sq.
		Insert("bars").
		Columns("symbol", "exchange", "interval", "timestamp", "open", "high", "low", "close", "volume").
		Values(bar.Symbol, bar.Exchange, string(bar.Interval), bar.Timestamp,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
		Suffix(`ON CONFLICT (symbol, interval, timestamp) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)

	if _, err := query.RunWith(s.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to insert bar", err)
	}

	return nil
}

// LoadBars returns the bars of the last days for the symbol and interval,
// oldest first.
func (s *Store) LoadBars(symbol string, interval types.BarInterval, days int) ([]types.Bar, error) {
	since := time.Now().AddDate(0, 0, -days)

	query := s.sq.
		Select("symbol", "exchange", "interval", "timestamp", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol, "interval": string(interval)}).
		Where(squirrel.GtOrEq{"timestamp": since}).
		OrderBy("timestamp ASC")

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to load bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			bar      types.Bar
			interval string
		)

		if err := rows.Scan(&bar.Symbol, &bar.Exchange, &interval, &bar.Timestamp,
			&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to scan bar", err)
		}

		bar.Interval = types.BarInterval(interval)
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to iterate bars", err)
	}

	return bars, nil
}

// InsertTick records one tick snapshot with its top-of-book quote.
func (s *Store) InsertTick(tick types.Tick) error {
	query := s.sq.
		Insert("ticks").
		Columns("symbol", "exchange", "timestamp", "last_price", "volume",
			"bid_price", "bid_volume", "ask_price", "ask_volume").
		Values(tick.Symbol, tick.Exchange, tick.Timestamp, tick.LastPrice, tick.Volume,
			tick.BidPrices[0], tick.BidVolumes[0], tick.AskPrices[0], tick.AskVolumes[0])

	if _, err := query.RunWith(s.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to insert tick", err)
	}

	return nil
}

// LoadTicks returns the ticks of a symbol within [start, end], oldest first.
func (s *Store) LoadTicks(symbol string, start, end time.Time) ([]types.Tick, error) {
	query := s.sq.
		Select("symbol", "exchange", "timestamp", "last_price", "volume",
			"bid_price", "bid_volume", "ask_price", "ask_volume").
		From("ticks").
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.GtOrEq{"timestamp": start}).
		Where(squirrel.LtOrEq{"timestamp": end}).
		OrderBy("timestamp ASC")

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to load ticks", err)
	}
	defer rows.Close()

	var ticks []types.Tick

	for rows.Next() {
		var tick types.Tick

		if err := rows.Scan(&tick.Symbol, &tick.Exchange, &tick.Timestamp,
			&tick.LastPrice, &tick.Volume,
			&tick.BidPrices[0], &tick.BidVolumes[0],
			&tick.AskPrices[0], &tick.AskVolumes[0]); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to scan tick", err)
		}

		ticks = append(ticks, tick)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to iterate ticks", err)
	}

	return ticks, nil
}

// SaveStrategySync upserts a strategy's persisted position.
func (s *Store) SaveStrategySync(name string, pos float64) error {
	query := s.sq.
		Insert("strategy_sync").
		Columns("strategy_name", "pos", "updated_at").
		Values(name, pos, time.Now()).
		Suffix(`ON CONFLICT (strategy_name) DO UPDATE SET
			pos = excluded.pos, updated_at = excluded.updated_at`)

	if _, err := query.RunWith(s.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to save strategy sync", err)
	}

	return nil
}

// LoadStrategySync returns a strategy's persisted position, or None when the
// strategy has never synced.
func (s *Store) LoadStrategySync(name string) (optional.Option[float64], error) {
	query := s.sq.
		Select("pos").
		From("strategy_sync").
		Where(squirrel.Eq{"strategy_name": name})

	var pos float64

	err := query.RunWith(s.db).QueryRow().Scan(&pos)
	if err == sql.ErrNoRows {
		return optional.None[float64](), nil
	}

	if err != nil {
		return optional.None[float64](), errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to load strategy sync", err)
	}

	return optional.Some(pos), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.Error("failed to close database", zap.Error(err))

		return err
	}

	return nil
}

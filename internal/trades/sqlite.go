package trades

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

const DefaultTable = "executed_trades"

// SQLiteSource reads trades from a table in a SQLite database, in rowid order.
type SQLiteSource struct {
	Path     string
	Table    string
	Location *time.Location
}

func NewSQLiteSource(path, table string, loc *time.Location) *SQLiteSource {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteSource{Path: strings.TrimSpace(path), Table: table, Location: loc}
}

func (s *SQLiteSource) Describe() string {
	return fmt.Sprintf("%s#%s", filepath.Base(s.Path), s.Table)
}

type sqliteRow struct {
	EntryTime       sql.NullString `gorm:"column:entry_time"`
	Symbol          sql.NullString `gorm:"column:symbol"`
	EntryType       sql.NullString `gorm:"column:entry_type"`
	EntryPrice      sql.NullString `gorm:"column:entry_price"`
	ExitPrice       sql.NullString `gorm:"column:exit_price"`
	ConfidenceScore sql.NullString `gorm:"column:confidence_score"`
	ModelDecision   sql.NullString `gorm:"column:model_decision"`
}

func (r sqliteRow) raw() rawRow {
	return rawRow{
		EntryTime:       r.EntryTime.String,
		Symbol:          r.Symbol.String,
		EntryType:       r.EntryType.String,
		EntryPrice:      r.EntryPrice.String,
		ExitPrice:       r.ExitPrice.String,
		ConfidenceScore: r.ConfidenceScore.String,
		ModelDecision:   r.ModelDecision.String,
	}
}

func (s *SQLiteSource) Load(ctx context.Context) ([]TradeRecord, error) {
	name := s.Describe()
	if s.Path == "" {
		return nil, &LoadError{Err: ErrSourceMissing}
	}
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Source: s.Path, Err: ErrSourceMissing}
		}
		return nil, &LoadError{Source: s.Path, Err: err}
	}
	db, err := OpenSQLite(s.Path)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	defer closeDB(db)

	db = db.WithContext(ctx)
	if !db.Migrator().HasTable(s.Table) {
		return nil, &LoadError{Source: name, Err: fmt.Errorf("%w: table %s does not exist", ErrSourceMissing, s.Table)}
	}
	for _, col := range Columns {
		if !db.Migrator().HasColumn(s.Table, col) {
			return nil, &LoadError{Source: name, Column: col, Err: ErrMissingColumn}
		}
	}
	var rows []sqliteRow
	if err := db.Table(s.Table).Select(Columns).Order("rowid").Find(&rows).Error; err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.raw().toRecord(name, i+1, s.Location)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// OpenSQLite opens path with the pure-Go driver registered as "sqlite".
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

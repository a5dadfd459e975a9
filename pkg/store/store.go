package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/jgbaldwinbrown/yfreq/pkg"
)

// Sample is one decorated haplogroup call.
type Sample struct {
	bun.BaseModel `bun:"table:samples,alias:s"`

	ID                int64            `bun:"id,pk,autoincrement" json:"id"`
	Run               string           `bun:"run,notnull" json:"run"`
	SampleID          string           `bun:"sample_id,notnull" json:"sample_id"`
	TerminalSNP       string           `bun:"terminal_snp,notnull" json:"terminal_snp"`
	RepresentativeSNP string           `bun:"representative_snp,notnull" json:"representative_snp"`
	Haplogroup        string           `bun:"haplogroup,notnull" json:"haplogroup"`
	Major             string           `bun:"major,notnull" json:"major"`
	Level1            yfreq.NullString `bun:"level1,type:varchar" json:"level1"`
	Level2            yfreq.NullString `bun:"level2,type:varchar" json:"level2"`
	Level3            yfreq.NullString `bun:"level3,type:varchar" json:"level3"`
}

// Frequency is one row of a frequency table; Rank keeps the table order.
type Frequency struct {
	bun.BaseModel `bun:"table:frequencies,alias:f"`

	ID         int64   `bun:"id,pk,autoincrement" json:"id"`
	Run        string  `bun:"run,notnull" json:"run"`
	KeyName    string  `bun:"key_name,notnull" json:"key_name"`
	Scope      string  `bun:"scope,notnull" json:"scope"`
	Rank       int     `bun:"rank,notnull" json:"rank"`
	Key        string  `bun:"key_value,notnull" json:"key"`
	Count      int     `bun:"count,notnull" json:"count"`
	Frequency  float64 `bun:"frequency,notnull" json:"frequency"`
	Percentage float64 `bun:"percentage,notnull" json:"percentage"`
}

// Pragmas applied to every database opened by NewDB. SQLite pragmas are per
// connection, so NewDB keeps a single connection open.
var Pragmas = []string{
	"journal_mode = WAL",
	"synchronous = NORMAL",
	"busy_timeout = 5000",
	"temp_store = MEMORY",
}

// NewDB opens an analysis database at dsn. With debug set every query is logged.
func NewDB(dsn string, debug bool) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("NewDB: %v: %w", dsn, err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	for _, p := range Pragmas {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			db.Close()
			return nil, fmt.Errorf("NewDB: PRAGMA %v: %w", p, err)
		}
	}
	return db, nil
}

func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []interface{}{(*Sample)(nil), (*Frequency)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run)",
		"CREATE INDEX IF NOT EXISTS idx_frequencies_run_key ON frequencies(run, key_name, rank)",
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func ToSamples(run string, hs []yfreq.HaplogroupRecord) []*Sample {
	out := make([]*Sample, 0, len(hs))
	for _, h := range hs {
		out = append(out, &Sample{
			Run:               run,
			SampleID:          h.SampleID,
			TerminalSNP:       h.TerminalSNP,
			RepresentativeSNP: h.RepresentativeSNP,
			Haplogroup:        h.Haplogroup,
			Major:             h.Major,
			Level1:            h.Level1,
			Level2:            h.Level2,
			Level3:            h.Level3,
		})
	}
	return out
}

func ToFrequencies(run string, t yfreq.FrequencyTable) []*Frequency {
	out := make([]*Frequency, 0, len(t.Rows))
	for i, r := range t.Rows {
		out = append(out, &Frequency{
			Run:        run,
			KeyName:    t.KeyName,
			Scope:      t.Scope,
			Rank:       i,
			Key:        r.Key,
			Count:      r.Count,
			Frequency:  r.Frequency,
			Percentage: r.Percentage,
		})
	}
	return out
}

// SaveAnalysis replaces everything stored under run with the analysis, in
// one transaction.
func SaveAnalysis(ctx context.Context, db *bun.DB, run string, a *yfreq.Analysis) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := CreateSchema(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*Sample)(nil)).Where("run = ?", run).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*Frequency)(nil)).Where("run = ?", run).Exec(ctx); err != nil {
			return err
		}

		samples := ToSamples(run, a.Records)
		if len(samples) > 0 {
			if _, err := tx.NewInsert().Model(&samples).Exec(ctx); err != nil {
				return err
			}
		}

		for _, t := range a.Tables() {
			freqs := ToFrequencies(run, t)
			if len(freqs) == 0 {
				continue
			}
			if _, err := tx.NewInsert().Model(&freqs).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadFrequencies returns the stored rows of one table in table order.
func LoadFrequencies(ctx context.Context, db *bun.DB, run, keyName string) ([]*Frequency, error) {
	var freqs []*Frequency
	err := db.NewSelect().
		Model(&freqs).
		Where("run = ?", run).
		Where("key_name = ?", keyName).
		OrderExpr("rank ASC").
		Scan(ctx)
	return freqs, err
}

func LoadSamples(ctx context.Context, db *bun.DB, run string) ([]*Sample, error) {
	var samples []*Sample
	err := db.NewSelect().
		Model(&samples).
		Where("run = ?", run).
		OrderExpr("id ASC").
		Scan(ctx)
	return samples, err
}

// SaveAnalysisPath opens dsn, saves the analysis and closes the database.
func SaveAnalysisPath(ctx context.Context, dsn string, debug bool, run string, a *yfreq.Analysis) (err error) {
	db, err := NewDB(dsn, debug)
	if err != nil {
		return err
	}
	defer func() {
		if e := db.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return SaveAnalysis(ctx, db, run, a)
}

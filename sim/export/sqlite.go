package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tumour-sim/casim/sim"
)

// SchemaVersion is the current results database schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

-- One row per exported run.
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    seed INTEGER NOT NULL,
    generation INTEGER NOT NULL,
    matrix_size INTEGER NOT NULL,
    population INTEGER NOT NULL,
    lineage_records INTEGER NOT NULL,
    deaths INTEGER NOT NULL,
    adv_fired INTEGER NOT NULL DEFAULT 0,
    adv_generation INTEGER,
    adv_record INTEGER,
    params TEXT NOT NULL,  -- JSON
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lineage (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    parent INTEGER NOT NULL,
    generation INTEGER NOT NULL,
    kind TEXT NOT NULL,
    PRIMARY KEY (run_id, id)
);

-- Sampled regions; the whole tumour has no centre.
CREATE TABLE IF NOT EXISTS samples (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    centre_row INTEGER,
    centre_col INTEGER,
    cells INTEGER NOT NULL,
    PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS frequencies (
    run_id INTEGER NOT NULL,
    sample TEXT NOT NULL,
    mutation_id INTEGER NOT NULL,
    count INTEGER NOT NULL,
    frequency REAL NOT NULL,
    depth INTEGER NOT NULL,
    reads INTEGER NOT NULL,
    vaf REAL NOT NULL,
    PRIMARY KEY (run_id, sample, mutation_id),
    FOREIGN KEY (run_id, sample) REFERENCES samples(run_id, name) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_frequencies_mutation ON frequencies(run_id, mutation_id);
`

// ResultsDB stores finished runs in a SQLite file. Several runs may share
// one database.
type ResultsDB struct {
	db *sql.DB
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID             int64
	Seed           int64
	Generation     int
	MatrixSize     int
	Population     int
	LineageRecords int
	Deaths         int
	AdvFired       bool
}

// OpenResultsDB opens (creating if needed) the database at path and brings
// its schema up to date.
func OpenResultsDB(path string) (*ResultsDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &ResultsDB{db: db}, nil
}

// InitSchema creates the tables on a fresh database. Existing databases at the
// current version are left alone; newer ones are rejected.
func InitSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil {
		if version > SchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// Close releases the database handle.
func (r *ResultsDB) Close() error {
	return r.db.Close()
}

// SaveRun stores the simulator's lineage and every table of report in one
// transaction and returns the new run id.
func (r *ResultsDB) SaveRun(ctx context.Context, s *sim.Simulator, report *sim.Report) (int64, error) {
	params, err := json.Marshal(s.Params)
	if err != nil {
		return 0, fmt.Errorf("marshaling parameters: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m := sim.CollectMetrics(s)
	adv := s.Advantageous()
	var advGen, advRecord sql.NullInt64
	if adv.Fired {
		advGen = sql.NullInt64{Int64: int64(adv.Generation), Valid: true}
		advRecord = sql.NullInt64{Int64: int64(adv.Record), Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (seed, generation, matrix_size, population, lineage_records, deaths,
		                  adv_fired, adv_generation, adv_record, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(s.RNG().Key()), m.Generation, s.Lattice().Size(), m.Population, m.LineageRecords, m.Deaths,
		boolToInt(adv.Fired), advGen, advRecord, string(params), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	if err := insertLineage(ctx, tx, runID, s.Lineage()); err != nil {
		return 0, err
	}
	if err := insertTables(ctx, tx, runID, report); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

func insertLineage(ctx context.Context, tx *sql.Tx, runID int64, lin *sim.Lineage) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lineage (run_id, id, parent, generation, kind) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lineage insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range lin.Records() {
		if rec.ID == sim.GermlineID {
			continue
		}
		if _, err := stmt.ExecContext(ctx, runID, int64(rec.ID), int64(rec.Parent), rec.Generation, rec.Kind.String()); err != nil {
			return fmt.Errorf("failed to insert lineage record %d: %w", rec.ID, err)
		}
	}
	return nil
}

func insertTables(ctx context.Context, tx *sql.Tx, runID int64, report *sim.Report) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frequencies (run_id, sample, mutation_id, count, frequency, depth, reads, vaf)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare frequency insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range reportTables(report) {
		var row, col sql.NullInt64
		if i > 0 {
			pos := report.Samples[i-1].Position
			row = sql.NullInt64{Int64: int64(pos.Row), Valid: true}
			col = sql.NullInt64{Int64: int64(pos.Col), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO samples (run_id, name, centre_row, centre_col, cells) VALUES (?, ?, ?, ?, ?)`,
			runID, t.name, row, col, t.table.Total); err != nil {
			return fmt.Errorf("failed to insert sample %s: %w", t.name, err)
		}
		if t.observed == nil || len(t.observed.Rows) != len(t.table.Rows) {
			return fmt.Errorf("table %s: observed rows do not match true rows", t.name)
		}
		for j, fr := range t.table.Rows {
			o := t.observed.Rows[j]
			if _, err := stmt.ExecContext(ctx, runID, t.name, int64(fr.ID), fr.Count, fr.Frequency, o.Depth, o.Reads, o.VAF); err != nil {
				return fmt.Errorf("failed to insert frequency %s/%d: %w", t.name, fr.ID, err)
			}
		}
	}
	return nil
}

// Runs lists every stored run, oldest first.
func (r *ResultsDB) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seed, generation, matrix_size, population, lineage_records, deaths, adv_fired
		FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var fired int
		if err := rows.Scan(&rs.ID, &rs.Seed, &rs.Generation, &rs.MatrixSize, &rs.Population,
			&rs.LineageRecords, &rs.Deaths, &fired); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rs.AdvFired = fired != 0
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Frequencies returns one stored table of a run, ordered by mutation id.
func (r *ResultsDB) Frequencies(ctx context.Context, runID int64, sample string) ([]VAFRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT f.mutation_id, l.parent, l.generation, l.kind, f.count, f.frequency, f.depth, f.reads, f.vaf
		FROM frequencies f
		JOIN lineage l ON l.run_id = f.run_id AND l.id = f.mutation_id
		WHERE f.run_id = ? AND f.sample = ?
		ORDER BY f.mutation_id`, runID, sample)
	if err != nil {
		return nil, fmt.Errorf("failed to query frequencies: %w", err)
	}
	defer rows.Close()

	var out []VAFRow
	for rows.Next() {
		v := VAFRow{Table: sample}
		if err := rows.Scan(&v.ID, &v.Parent, &v.Generation, &v.Kind, &v.Count, &v.Frequency,
			&v.Depth, &v.Reads, &v.VAF); err != nil {
			return nil, fmt.Errorf("failed to scan frequency: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

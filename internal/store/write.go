package store

import (
	"context"
	"fmt"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// DatasetMeta is the provenance of one built table.
type DatasetMeta struct {
	ID          int64
	RunID       string
	Survey      string
	Binning     string
	Components  string
	Extcorr     bool
	MinSNR      int
	Debug       bool
	Filename    string
	Fingerprint string
	Rows        int
	CreatedAt   string
}

// WriteDataset persists a table with its provenance. Idempotent on the
// table fingerprint: writing a byte-identical table again returns the
// existing dataset id with inserted=false and stores nothing.
func (s *Store) WriteDataset(ctx context.Context, meta DatasetMeta, t *table.Table) (id int64, inserted bool, err error) {
	fingerprint, err := t.Fingerprint()
	if err != nil {
		return 0, false, fmt.Errorf("write dataset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write dataset: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO datasets
		(run_id, survey, binning, components, extcorr, min_snr, debug, filename, fingerprint, nrows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		meta.RunID,
		meta.Survey,
		meta.Binning,
		meta.Components,
		meta.Extcorr,
		meta.MinSNR,
		meta.Debug,
		meta.Filename,
		fingerprint,
		t.NumRows(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("write dataset: insert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write dataset: rows affected: %w", err)
	}
	if affected == 0 {
		// Same fingerprint already stored; keep the original.
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM datasets WHERE fingerprint = ?`, fingerprint).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write dataset: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("write dataset: commit (existing): %w", err)
		}
		return id, false, nil
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("write dataset: last insert id: %w", err)
	}

	for pos, name := range t.ColumnNames() {
		c := t.Column(name)
		data, err := encodeColumn(c)
		if err != nil {
			return 0, false, fmt.Errorf("write dataset: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO columns (dataset_id, position, name, kind, digest, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, pos, c.Name, c.Kind.String(), table.ColumnDigest(c), data)
		if err != nil {
			return 0, false, fmt.Errorf("write dataset: column %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write dataset: commit: %w", err)
	}
	return id, true, nil
}

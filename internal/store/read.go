package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// ErrNoDataset is returned when a dataset file holds no datasets, or
// the requested dataset id does not exist.
var ErrNoDataset = errors.New("store: no such dataset")

// List returns every dataset in the file, oldest first.
func (s *Store) List(ctx context.Context) ([]DatasetMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, survey, binning, components, extcorr, min_snr, debug,
		       filename, fingerprint, nrows, created_at
		FROM datasets ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var metas []DatasetMeta
	for rows.Next() {
		var m DatasetMeta
		err := rows.Scan(&m.ID, &m.RunID, &m.Survey, &m.Binning, &m.Components,
			&m.Extcorr, &m.MinSNR, &m.Debug, &m.Filename, &m.Fingerprint,
			&m.Rows, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("list datasets: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return metas, nil
}

// ReadTable reconstructs the stored table for one dataset id, columns in
// their original order.
func (s *Store) ReadTable(ctx context.Context, id int64) (*table.Table, error) {
	var nrows int
	err := s.db.QueryRowContext(ctx, `SELECT nrows FROM datasets WHERE id = ?`, id).Scan(&nrows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %d: %w", id, ErrNoDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, data FROM columns
		WHERE dataset_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("read dataset %d: %w", id, err)
	}
	defer rows.Close()

	t := table.New(nrows)
	for rows.Next() {
		var name, kind, data string
		if err := rows.Scan(&name, &kind, &data); err != nil {
			return nil, fmt.Errorf("read dataset %d: %w", id, err)
		}
		c, err := decodeColumn(name, kind, data, nrows)
		if err != nil {
			return nil, fmt.Errorf("read dataset %d: %w", id, err)
		}
		switch c.Kind {
		case table.Float:
			err = t.AddFloat(c.Name, c.Floats)
		case table.Int:
			err = t.AddInt(c.Name, c.Ints)
		case table.String:
			err = t.AddString(c.Name, c.Strings)
		case table.Bool:
			err = t.AddBool(c.Name, c.Bools)
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset %d: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dataset %d: %w", id, err)
	}
	return t, nil
}

// ReadLatest returns the newest dataset and its table. Compare runs use
// this: a reference file usually holds exactly one dataset.
func (s *Store) ReadLatest(ctx context.Context) (*DatasetMeta, *table.Table, error) {
	metas, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(metas) == 0 {
		return nil, nil, ErrNoDataset
	}
	m := metas[len(metas)-1]
	t, err := s.ReadTable(ctx, m.ID)
	if err != nil {
		return nil, nil, err
	}
	return &m, t, nil
}

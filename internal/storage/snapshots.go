package storage

import (
	"database/sql"
	"fmt"
	"time"

	"langidx/internal/errors"
	"langidx/internal/index"
)

// RunInfo describes a stored snapshot.
type RunInfo struct {
	RunID       string    `json:"runId" yaml:"runId"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	StoredAt    time.Time `json:"storedAt" yaml:"storedAt"`
	FileCount   int       `json:"fileCount" yaml:"fileCount"`
	SymbolCount int       `json:"symbolCount" yaml:"symbolCount"`
}

// SnapshotStore saves and loads the latest committed snapshot.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a store backed by db.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save replaces the stored snapshot with snap in a single transaction.
func (s *SnapshotStore) Save(snap *index.Snapshot) (*RunInfo, error) {
	meta := snap.Meta()
	info := &RunInfo{
		RunID:       meta.RunID,
		Fingerprint: meta.Fingerprint,
		CreatedAt:   meta.CreatedAt.UTC(),
		StoredAt:    time.Now().UTC(),
		FileCount:   len(snap.URIs()),
		SymbolCount: snap.SymbolCount(),
	}
	if info.RunID == "" {
		return nil, errors.Newf(errors.InvalidArgument, "snapshot has no run id")
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		// Only the latest run is kept.
		for _, table := range []string{"usages", "symbol_references", "symbols", "runs"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		if _, err := tx.Exec(`
			INSERT INTO runs (run_id, fingerprint, created_at, stored_at, file_count, symbol_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, info.RunID, info.Fingerprint, info.CreatedAt.Format(time.RFC3339Nano), info.StoredAt.Format(time.RFC3339Nano),
			info.FileCount, info.SymbolCount); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		w := &symbolWriter{tx: tx, runID: info.RunID, ids: make(map[index.Symbol]int64)}
		for _, sym := range snap.Symbols() {
			if _, err := w.id(sym, true); err != nil {
				return err
			}
		}

		for _, key := range snap.ReferenceKeys() {
			for _, sym := range snap.References(key) {
				id, err := w.id(sym, false)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(`
					INSERT OR IGNORE INTO symbol_references (run_id, decl_key, symbol_id) VALUES (?, ?, ?)
				`, info.RunID, key, id); err != nil {
					return fmt.Errorf("failed to insert reference: %w", err)
				}
			}
		}

		for _, link := range snap.AllUsages() {
			id, err := w.id(link.Decl, false)
			if err != nil {
				return err
			}
			r := link.Usage.Range
			if _, err := tx.Exec(`
				INSERT INTO usages (run_id, uri, start_line, start_col, end_line, end_col, decl_id)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, info.RunID, link.Usage.URI, r.Start.Line, r.Start.Column, r.End.Line, r.End.Column, id); err != nil {
				return fmt.Errorf("failed to insert usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.logger.Info("stored snapshot", "runId", info.RunID, "symbols", info.SymbolCount, "files", info.FileCount)
	return info, nil
}

// symbolWriter inserts each distinct symbol once per run.
type symbolWriter struct {
	tx    *sql.Tx
	runID string
	ids   map[index.Symbol]int64
}

func (w *symbolWriter) id(sym index.Symbol, listed bool) (int64, error) {
	if id, ok := w.ids[sym]; ok {
		return id, nil
	}
	r := sym.Location.Range
	res, err := w.tx.Exec(`
		INSERT INTO symbols (run_id, name, kind, container, qualified_name, uri,
			start_line, start_col, end_line, end_col, listed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.runID, sym.Name, sym.Kind.String(), sym.ContainerName, sym.QualifiedName, sym.Location.URI,
		r.Start.Line, r.Start.Column, r.End.Line, r.End.Column, boolToInt(listed))
	if err != nil {
		return 0, fmt.Errorf("failed to insert symbol %s: %w", sym.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	w.ids[sym] = id
	return id, nil
}

// Latest returns the stored run, or an INDEX_MISSING error when nothing has
// been stored yet.
func (s *SnapshotStore) Latest() (*RunInfo, error) {
	var info RunInfo
	var created, stored string
	err := s.db.queryRow(`
		SELECT run_id, fingerprint, created_at, stored_at, file_count, symbol_count
		FROM runs ORDER BY stored_at DESC LIMIT 1
	`).Scan(&info.RunID, &info.Fingerprint, &created, &stored, &info.FileCount, &info.SymbolCount)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.IndexMissing, "no snapshot has been stored", nil, errors.GetSuggestedFixes(errors.IndexMissing))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	info.StoredAt, _ = time.Parse(time.RFC3339Nano, stored)
	return &info, nil
}

// Load rebuilds the stored snapshot.
func (s *SnapshotStore) Load() (*index.Snapshot, error) {
	info, err := s.Latest()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.query(`
		SELECT id, name, kind, container, qualified_name, uri,
			start_line, start_col, end_line, end_col, listed
		FROM symbols WHERE run_id = ? ORDER BY id
	`, info.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	byID := make(map[int64]index.Symbol)
	var listed []index.Symbol
	for rows.Next() {
		var id int64
		var kind string
		var isListed int
		var sym index.Symbol
		r := &sym.Location.Range
		if err := rows.Scan(&id, &sym.Name, &kind, &sym.ContainerName, &sym.QualifiedName, &sym.Location.URI,
			&r.Start.Line, &r.Start.Column, &r.End.Line, &r.End.Column, &isListed); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		if sym.Kind, err = index.ParseKind(kind); err != nil {
			_ = rows.Close()
			return nil, err
		}
		byID[id] = sym
		if isListed == 1 {
			listed = append(listed, sym)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	refs := make(map[string][]index.Symbol)
	rows, err = s.db.query(`SELECT decl_key, symbol_id FROM symbol_references WHERE run_id = ?`, info.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	for rows.Next() {
		var key string
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs[key] = append(refs[key], byID[id])
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	var usages []index.UsageLink
	rows, err = s.db.query(`
		SELECT uri, start_line, start_col, end_line, end_col, decl_id
		FROM usages WHERE run_id = ?
	`, info.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usages: %w", err)
	}
	for rows.Next() {
		var link index.UsageLink
		var id int64
		r := &link.Usage.Range
		if err := rows.Scan(&link.Usage.URI, &r.Start.Line, &r.Start.Column, &r.End.Line, &r.End.Column, &id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		link.Decl = byID[id]
		usages = append(usages, link)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	meta := index.Meta{RunID: info.RunID, Fingerprint: info.Fingerprint, CreatedAt: info.CreatedAt}
	return index.NewSnapshot(meta, listed, refs, usages), nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package sqlite stores the saved-map library in a local SQLite database,
// the default for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"mindmesh/domain/mapdoc"
	pkgerrors "mindmesh/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_maps (
	id         TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       TEXT NOT NULL,
	node_count INTEGER NOT NULL,
	edge_count INTEGER NOT NULL,
	saved_at   TEXT NOT NULL,
	UNIQUE(owner_id, name)
);
CREATE INDEX IF NOT EXISTS idx_saved_maps_owner ON saved_maps(owner_id);
`

// MapLibrary implements ports.MapLibrary on SQLite.
type MapLibrary struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMapLibrary opens (creating if needed) the SQLite database at path.
func NewMapLibrary(path string, logger *zap.Logger) (*MapLibrary, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}
	return &MapLibrary{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (l *MapLibrary) Close() error {
	return l.db.Close()
}

// Put stores a saved map. The (owner, name) pair is unique: saving under
// an existing name replaces the earlier map in place.
func (l *MapLibrary) Put(ctx context.Context, ownerID string, rec mapdoc.SavedMap) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal map data: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO saved_maps (id, owner_id, name, data, node_count, edge_count, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO UPDATE SET
			id = excluded.id,
			data = excluded.data,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			saved_at = excluded.saved_at`,
		rec.ID, ownerID, rec.Name, string(data),
		len(rec.Data.Nodes), len(rec.Data.Edges),
		rec.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		l.logger.Error("failed to save map",
			zap.String("name", rec.Name),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("save map", err)
	}
	return nil
}

// Get fetches a saved map by name.
func (l *MapLibrary) Get(ctx context.Context, ownerID, name string) (mapdoc.SavedMap, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, name, data, saved_at
		FROM saved_maps
		WHERE owner_id = ? AND name = ?`,
		ownerID, name,
	)

	var (
		rec     mapdoc.SavedMap
		rawData string
		savedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rawData, &savedAt); err != nil {
		if err == sql.ErrNoRows {
			return mapdoc.SavedMap{}, pkgerrors.NewNotFoundError("saved map")
		}
		return mapdoc.SavedMap{}, pkgerrors.NewDatabaseError("get map", err)
	}

	if err := json.Unmarshal([]byte(rawData), &rec.Data); err != nil {
		return mapdoc.SavedMap{}, fmt.Errorf("decode map data: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return mapdoc.SavedMap{}, fmt.Errorf("parse map timestamp: %w", err)
	}
	rec.Timestamp = ts
	return rec, nil
}

// List returns summaries of the owner's saved maps, newest first.
func (l *MapLibrary) List(ctx context.Context, ownerID string) ([]mapdoc.Info, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, node_count, edge_count, saved_at
		FROM saved_maps
		WHERE owner_id = ?
		ORDER BY saved_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list maps", err)
	}
	defer rows.Close()

	var infos []mapdoc.Info
	for rows.Next() {
		var (
			info    mapdoc.Info
			savedAt string
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.NodeCount, &info.EdgeCount, &savedAt); err != nil {
			return nil, pkgerrors.NewDatabaseError("scan map row", err)
		}
		ts, err := time.Parse(time.RFC3339, savedAt)
		if err != nil {
			l.logger.Warn("skipping map row with bad timestamp",
				zap.String("name", info.Name),
				zap.Error(err),
			)
			continue
		}
		info.Timestamp = ts
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list maps", err)
	}
	return infos, nil
}

// Delete removes a saved map by name. Deleting an absent map is not an
// error.
func (l *MapLibrary) Delete(ctx context.Context, ownerID, name string) error {
	_, err := l.db.ExecContext(ctx, `
		DELETE FROM saved_maps WHERE owner_id = ? AND name = ?`,
		ownerID, name,
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("delete map", err)
	}
	return nil
}

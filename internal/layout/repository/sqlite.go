package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"floor-designer/internal/layout/models"
)

// ============================================================
// SQLite Repository
// ============================================================

//go:embed migrations/001_init_layout.sql
var initSchema string

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет схему.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, initSchema); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// ============================================================
// Layouts
// ============================================================

func (r *Repository) CreateLayout(ctx context.Context, layout models.Layout) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO layouts (id, name, width, depth)
        VALUES (?, ?, ?, ?)
    `, layout.ID, layout.Name, layout.Bounds.Width, layout.Bounds.Depth)
	if err != nil {
		return fmt.Errorf("insert layout: %w", err)
	}
	return nil
}

func (r *Repository) GetLayout(ctx context.Context, id string) (*models.Layout, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, width, depth
        FROM layouts
        WHERE id = ?
    `, id)

	var l models.Layout
	if err := row.Scan(&l.ID, &l.Name, &l.Bounds.Width, &l.Bounds.Depth); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrLayoutNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repository) ListLayouts(ctx context.Context) ([]models.Layout, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, width, depth
        FROM layouts
        ORDER BY created_at, name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	layouts := []models.Layout{}
	for rows.Next() {
		var l models.Layout
		if err := rows.Scan(&l.ID, &l.Name, &l.Bounds.Width, &l.Bounds.Depth); err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return layouts, rows.Err()
}

func (r *Repository) RenameLayout(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE layouts SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename layout: %w", err)
	}
	return expectRow(res, models.ErrLayoutNotFound)
}

// DeleteLayout удаляет раскладку вместе с её объектами.
func (r *Repository) DeleteLayout(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE layout_id = ?`, id); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if err := expectRow(res, models.ErrLayoutNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// ============================================================
// Items
// ============================================================

func (r *Repository) ListItems(ctx context.Context, layoutID string) ([]models.ItemPayload, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, type, name, x, y, z, width, height, depth, rotation, color, mergeable, metadata
        FROM items
        WHERE layout_id = ?
        ORDER BY rowid
    `, layoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ItemPayload{}
	for rows.Next() {
		var (
			p    models.ItemPayload
			meta string
		)
		if err := rows.Scan(&p.ID, &p.Type, &p.Name,
			&p.Position.X, &p.Position.Y, &p.Position.Z,
			&p.Size.Width, &p.Size.Height, &p.Size.Depth,
			&p.Rotation, &p.Color, &p.Mergeable, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", p.ID, err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *Repository) CreateItem(ctx context.Context, layoutID string, item models.ItemPayload) error {
	meta, err := encodeMetadata(item.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO items (id, layout_id, type, name, x, y, z, width, height, depth, rotation, color, mergeable, metadata)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		item.ID, layoutID, item.Type, item.Name,
		item.Position.X, item.Position.Y, item.Position.Z,
		item.Size.Width, item.Size.Height, item.Size.Depth,
		item.Rotation, item.Color, item.Mergeable, meta,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *Repository) UpdateItem(ctx context.Context, layoutID string, item models.ItemPayload) error {
	meta, err := encodeMetadata(item.Metadata)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
        UPDATE items
        SET type = ?, name = ?, x = ?, y = ?, z = ?, width = ?, height = ?, depth = ?,
            rotation = ?, color = ?, mergeable = ?, metadata = ?
        WHERE id = ? AND layout_id = ?
    `,
		item.Type, item.Name,
		item.Position.X, item.Position.Y, item.Position.Z,
		item.Size.Width, item.Size.Height, item.Size.Depth,
		item.Rotation, item.Color, item.Mergeable, meta,
		item.ID, layoutID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectRow(res, models.ErrItemNotFound)
}

func (r *Repository) DeleteItem(ctx context.Context, layoutID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND layout_id = ?`, itemID, layoutID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectRow(res, models.ErrItemNotFound)
}

// ============================================================
// Helpers
// ============================================================

func encodeMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

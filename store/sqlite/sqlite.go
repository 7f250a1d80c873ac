package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

// SQLiteBoardStore keeps boards in a local database file for dev setups
// without DynamoDB.
type SQLiteBoardStore struct {
	conn *sql.DB
}

var _ store.BoardStore = (*SQLiteBoardStore)(nil)

func NewSQLiteBoardStore(dbPath string) (*SQLiteBoardStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer
	conn.SetMaxOpenConns(1)

	s := &SQLiteBoardStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteBoardStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteBoardStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			board_id TEXT PRIMARY KEY,
			layer_order TEXT NOT NULL DEFAULT '[]',
			order_version INTEGER NOT NULL DEFAULT 0,
			edits INTEGER NOT NULL DEFAULT 0,
			created INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS layers (
			board_id TEXT NOT NULL,
			layer_id TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (board_id, layer_id)
		)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteBoardStore) EnsureBoard(ctx context.Context, boardId string) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO boards (board_id, created) VALUES (?, ?) ON CONFLICT(board_id) DO NOTHING`,
		boardId, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteBoardStore) GetBoardLayers(ctx context.Context, boardId string) ([]models.LayerRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT layer_id, data FROM layers WHERE board_id = ? ORDER BY layer_id`, boardId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.LayerRecord{}
	for rows.Next() {
		r := models.LayerRecord{BoardId: boardId}
		if err := rows.Scan(&r.LayerId, &r.Data); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteBoardStore) GetLayerOrder(ctx context.Context, boardId string) ([]string, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT layer_order FROM boards WHERE board_id = ?`, boardId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	order := []string{}
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("decode layer order: %w", err)
	}
	return order, nil
}

// WriteLayerBatch applies the whole batch in one transaction, so either every
// record is stored or all of them are returned as unprocessed.
func (s *SQLiteBoardStore) WriteLayerBatch(ctx context.Context, records []models.LayerRecord) ([]models.LayerRecord, error) {
	if len(records) == 0 {
		return []models.LayerRecord{}, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return records, err
	}
	defer tx.Rollback()

	for _, r := range records {
		if r.Deleted {
			_, err = tx.ExecContext(ctx, `DELETE FROM layers WHERE board_id = ? AND layer_id = ?`, r.BoardId, r.LayerId)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO layers (board_id, layer_id, data) VALUES (?, ?, ?)
				ON CONFLICT(board_id, layer_id) DO UPDATE SET data = excluded.data`,
				r.BoardId, r.LayerId, r.Data)
		}
		if err != nil {
			return records, err
		}
	}

	if err := tx.Commit(); err != nil {
		return records, err
	}
	return []models.LayerRecord{}, nil
}

func (s *SQLiteBoardStore) SetLayerOrder(ctx context.Context, boardId string, layerIds []string) error {
	if layerIds == nil {
		layerIds = []string{}
	}
	raw, err := json.Marshal(layerIds)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO boards (board_id, layer_order, order_version, created) VALUES (?, ?, 1, ?)
		ON CONFLICT(board_id) DO UPDATE SET layer_order = excluded.layer_order, order_version = order_version + 1`,
		boardId, string(raw), time.Now().Unix())
	return err
}

func (s *SQLiteBoardStore) IncrementBoardEdits(ctx context.Context, boardId string, count int) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO boards (board_id, edits, created) VALUES (?, ?, ?)
		ON CONFLICT(board_id) DO UPDATE SET edits = edits + excluded.edits`,
		boardId, count, time.Now().Unix())
	return err
}

// BoardEdits reports the persisted edit count.
func (s *SQLiteBoardStore) BoardEdits(ctx context.Context, boardId string) (int, error) {
	var edits int
	err := s.conn.QueryRowContext(ctx, `SELECT edits FROM boards WHERE board_id = ?`, boardId).Scan(&edits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrBoardNotFound
	}
	return edits, err
}

func (s *SQLiteBoardStore) DeleteBoard(ctx context.Context, boardId string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE board_id = ?`, boardId); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE board_id = ?`, boardId); err != nil {
		return err
	}
	return tx.Commit()
}

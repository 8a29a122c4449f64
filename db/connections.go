package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finledger/bankfeed/pkg/models"
)

// CreateConnection inserts a new connection and sets its surrogate id.
// The item id is unique; linking the same item twice is an error.
func (db *DB) CreateConnection(ctx context.Context, conn *models.Connection) error {
	query := `
	INSERT INTO connections (item_id, access_token, institution_id, institution_name, status)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		conn.ItemID,
		conn.AccessToken,
		conn.InstitutionID,
		conn.InstitutionName,
		string(conn.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get connection id: %w", err)
	}
	conn.ID = id

	return nil
}

// GetActiveConnections returns every connection eligible for syncing.
func (db *DB) GetActiveConnections(ctx context.Context) ([]*models.Connection, error) {
	query := `
	SELECT id, item_id, access_token, institution_id, institution_name, status, next_cursor, last_synced_at
	FROM connections
	WHERE status = 'active'
	ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var connections []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

// GetConnectionByItemID returns the connection for a provider item id,
// or nil when no such connection exists.
func (db *DB) GetConnectionByItemID(ctx context.Context, itemID string) (*models.Connection, error) {
	query := `
	SELECT id, item_id, access_token, institution_id, institution_name, status, next_cursor, last_synced_at
	FROM connections
	WHERE item_id = ?
	LIMIT 1
	`

	conn, err := scanConnection(db.QueryRowContext(ctx, query, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return conn, nil
}

// SetConnectionStatus transitions a connection's lifecycle status.
func (db *DB) SetConnectionStatus(ctx context.Context, connectionID int64, status models.ConnectionStatus) error {
	query := `UPDATE connections SET status = ? WHERE id = ?`

	result, err := db.ExecContext(ctx, query, string(status), connectionID)
	if err != nil {
		return fmt.Errorf("failed to set connection status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no connection found with id: %d", connectionID)
	}

	return nil
}

// AdvanceCursor persists the cursor and sync time for a connection.
// Callers must only invoke this after every page up to the cursor has
// been durably applied; a crash before this point resumes from the
// previous cursor and reprocesses at most one page.
func (db *DB) AdvanceCursor(ctx context.Context, connectionID int64, cursor string, syncedAt time.Time) error {
	query := `UPDATE connections SET next_cursor = ?, last_synced_at = ? WHERE id = ?`

	result, err := db.ExecContext(ctx, query, cursor, syncedAt, connectionID)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no connection found with id: %d", connectionID)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var conn models.Connection
	var status string
	var cursor sql.NullString
	var lastSynced sql.NullTime

	err := row.Scan(
		&conn.ID,
		&conn.ItemID,
		&conn.AccessToken,
		&conn.InstitutionID,
		&conn.InstitutionName,
		&status,
		&cursor,
		&lastSynced,
	)
	if err == sql.ErrNoRows {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	conn.Status = models.ConnectionStatus(status)
	if cursor.Valid {
		conn.NextCursor = cursor.String
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		conn.LastSyncedAt = &t
	}

	return &conn, nil
}

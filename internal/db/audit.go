package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OpKind tags an operation log entry.
type OpKind string

const (
	OpCreate OpKind = "CREATE"
	OpUpdate OpKind = "UPDATE"
	OpDelete OpKind = "DELETE"
	OpStock  OpKind = "STOCK"
	OpImport OpKind = "IMPORT"
	OpExport OpKind = "EXPORT"
)

// TargetKind names the table an entry is about.
type TargetKind string

const (
	TargetInventory TargetKind = "INVENTORY"
	TargetProject   TargetKind = "PROJECT"
)

// MaxAuditEntries is how many operation log rows are retained.
const MaxAuditEntries = 1000

const sqliteTimeLayout = "2006-01-02 15:04:05"

// AuditEntry is one operation_logs row.
type AuditEntry struct {
	ID       int64
	Op       OpKind
	Target   TargetKind
	TargetID int64
	// Key identifies the message template; Params fill it in.
	Key     string
	Params  map[string]any
	OldData string
	NewData string
	At      time.Time
}

type auditDescription struct {
	Key    string         `json:"key"`
	Params map[string]any `json:"params,omitempty"`
}

// Record appends an entry to the operation log and trims it to the newest
// MaxAuditEntries rows.
func (d *DB) Record(ctx context.Context, e AuditEntry) error {
	if d == nil || d.conn == nil {
		return fmt.Errorf("db is not open")
	}
	if strings.TrimSpace(string(e.Op)) == "" {
		return fmt.Errorf("op kind is required")
	}
	if strings.TrimSpace(string(e.Target)) == "" {
		return fmt.Errorf("target kind is required")
	}

	desc, err := json.Marshal(auditDescription{Key: e.Key, Params: e.Params})
	if err != nil {
		return fmt.Errorf("marshal description: %w", err)
	}

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	return d.WithTx(ctx, func(q *Queries) error {
		if _, err := q.q.ExecContext(ctx, `
INSERT INTO operation_logs (op_type, target_type, target_id, description, old_data, new_data, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(e.Op), string(e.Target), e.TargetID, string(desc),
			nullString(e.OldData), nullString(e.NewData), at.UTC().Format(sqliteTimeLayout)); err != nil {
			return fmt.Errorf("insert operation log: %w", err)
		}
		if _, err := q.q.ExecContext(ctx, `
DELETE FROM operation_logs WHERE id NOT IN (SELECT id FROM operation_logs ORDER BY id DESC LIMIT ?)`,
			MaxAuditEntries); err != nil {
			return fmt.Errorf("trim operation log: %w", err)
		}
		return nil
	})
}

// ListAudit returns up to limit entries, newest first.
func (d *DB) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if d == nil || d.conn == nil {
		return nil, fmt.Errorf("db is not open")
	}
	if limit <= 0 {
		limit = MaxAuditEntries
	}

	rows, err := d.conn.QueryContext(ctx, `
SELECT id, op_type, target_type, target_id, description, old_data, new_data, created_at
FROM operation_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list operation log: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                      AuditEntry
			op, target, createdAt  string
			desc, oldData, newData sql.NullString
		)
		if err := rows.Scan(&e.ID, &op, &target, &e.TargetID, &desc, &oldData, &newData, &createdAt); err != nil {
			return nil, fmt.Errorf("scan operation log: %w", err)
		}
		e.Op = OpKind(op)
		e.Target = TargetKind(target)
		e.OldData = oldData.String
		e.NewData = newData.String
		if desc.Valid {
			var parsed auditDescription
			if json.Unmarshal([]byte(desc.String), &parsed) == nil {
				e.Key = parsed.Key
				e.Params = parsed.Params
			}
		}
		if t, err := time.ParseInLocation(sqliteTimeLayout, createdAt, time.UTC); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation log: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/shapeq/internal/value"
)

// ErrNotFound is returned when no statement has the requested fingerprint.
var ErrNotFound = errors.New("statement not found")

// Statement kinds.
const (
	KindSelect    = "select"
	KindConstruct = "construct"
)

// Column is a recorded result column.
type Column struct {
	Label string `json:"label"`
	Var   string `json:"var"`
	Expr  string `json:"expr"`
}

// Entry is one recorded statement.
type Entry struct {
	ID          string
	Fingerprint string
	Seq         int64
	Kind        string
	Container   string
	Shape       string
	Text        string
	Columns     []Column
}

// Fingerprint returns the content address of a statement compiled for
// container.
func Fingerprint(container, text string) (string, error) {
	return value.Fingerprint(value.DomainStatement, map[string]any{
		"container": container,
		"text":      text,
	})
}

// Record stores e unless a statement with the same fingerprint exists.
// It returns the stored entry and whether it was inserted.
// ID, Fingerprint and Seq are assigned by Record.
func (c *Catalog) Record(ctx context.Context, e Entry) (Entry, bool, error) {
	if e.Kind != KindSelect && e.Kind != KindConstruct {
		return Entry{}, false, fmt.Errorf("record statement: unknown kind %q", e.Kind)
	}
	fp, err := Fingerprint(e.Container, e.Text)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record statement: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, false, fmt.Errorf("record statement: %w", err)
	}
	columns, err := marshalColumns(e.Columns)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record statement: %w", err)
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO statements (id, fingerprint, seq, kind, container, shape, text, columns)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM statements), ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, id.String(), fp, e.Kind, e.Container, e.Shape, e.Text, columns)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, false, fmt.Errorf("record statement: %w", err)
	}

	stored, err := c.Lookup(ctx, fp)
	if err != nil {
		return Entry{}, false, err
	}
	if n == 0 {
		slog.Debug("statement already recorded", "fingerprint", fp, "id", stored.ID)
		return stored, false, nil
	}
	slog.Debug("statement recorded", "fingerprint", fp, "id", stored.ID, "seq", stored.Seq)
	return stored, true, nil
}

// Lookup returns the statement with the given fingerprint.
func (c *Catalog) Lookup(ctx context.Context, fingerprint string) (Entry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, seq, kind, container, shape, text, columns
		FROM statements
		WHERE fingerprint = ?
	`, fingerprint)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("lookup %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup %s: %w", fingerprint, err)
	}
	return e, nil
}

// List returns up to limit statements, most recent first. A container
// restricts the listing to statements over that container. limit <= 0 lists
// all statements.
func (c *Catalog) List(ctx context.Context, container string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, fingerprint, seq, kind, container, shape, text, columns
		FROM statements
		WHERE ? = '' OR container = ?
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, container, container, limit)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		columns string
	)
	if err := s.Scan(&e.ID, &e.Fingerprint, &e.Seq, &e.Kind, &e.Container, &e.Shape, &e.Text, &columns); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(columns), &e.Columns); err != nil {
		return Entry{}, fmt.Errorf("decode columns of %s: %w", e.ID, err)
	}
	return e, nil
}

func marshalColumns(columns []Column) (string, error) {
	items := make([]any, len(columns))
	for i, col := range columns {
		items[i] = map[string]any{"label": col.Label, "var": col.Var, "expr": col.Expr}
	}
	data, err := value.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(data), nil
}

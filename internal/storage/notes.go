package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glabrego/deck-cli/internal/nostr"
)

func (r *Repository) SaveNotes(ctx context.Context, notes []nostr.Event) error {
	if len(notes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	noteStmt, err := tx.PrepareContext(ctx, `
INSERT INTO notes (id, pubkey, created_at, kind, content, tags, sig, stored_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`)
	if err != nil {
		return fmt.Errorf("prepare save note statement: %w", err)
	}
	defer noteStmt.Close()

	tagStmt, err := tx.PrepareContext(ctx, `
INSERT INTO note_tags (note_id, name, value) VALUES (?, ?, ?)
ON CONFLICT DO NOTHING
`)
	if err != nil {
		return fmt.Errorf("prepare save tag statement: %w", err)
	}
	defer tagStmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, note := range notes {
		tags, err := json.Marshal(note.Tags)
		if err != nil {
			return fmt.Errorf("encode tags of note %s: %w", note.ID, err)
		}
		if _, err := noteStmt.ExecContext(ctx, note.ID, note.Pubkey, note.CreatedAt, note.Kind, note.Content, string(tags), note.Sig, now); err != nil {
			return fmt.Errorf("save note %s: %w", note.ID, err)
		}
		for _, tag := range note.Tags {
			// Only single-letter tags are queryable by filters.
			if len(tag) < 2 || len(tag[0]) != 1 {
				continue
			}
			if _, err := tagStmt.ExecContext(ctx, note.ID, tag[0], tag[1]); err != nil {
				return fmt.Errorf("save tag of note %s: %w", note.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// QueryNotes returns stored notes matching any of filters, newest first,
// at most limit of them.
func (r *Repository) QueryNotes(ctx context.Context, filters []nostr.Filter, limit int) ([]nostr.Event, error) {
	if limit < 1 {
		limit = 100
	}
	byID := make(map[string]nostr.Event)
	for _, f := range filters {
		notes, err := r.queryFilter(ctx, f, limit)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			byID[n.ID] = n
		}
	}

	out := make([]nostr.Event, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) queryFilter(ctx context.Context, f nostr.Filter, limit int) ([]nostr.Event, error) {
	if f.Limit > 0 && f.Limit < limit {
		limit = f.Limit
	}
	var where []string
	var args []any

	addIn := func(column string, values []string) {
		where = append(where, column+" IN ("+placeholders(len(values))+")")
		for _, v := range values {
			args = append(args, v)
		}
	}
	if len(f.IDs) > 0 {
		addIn("id", f.IDs)
	}
	if len(f.Authors) > 0 {
		addIn("pubkey", f.Authors)
	}
	if len(f.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, k)
		}
	}
	// Tag names are sorted so the generated SQL is stable.
	names := make([]string, 0, len(f.Tags))
	for name := range f.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := f.Tags[name]
		where = append(where, "id IN (SELECT note_id FROM note_tags WHERE name = ? AND value IN ("+placeholders(len(values))+"))")
		args = append(args, name)
		for _, v := range values {
			args = append(args, v)
		}
	}
	if f.Search != "" {
		where = append(where, "content LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	query := `SELECT id, pubkey, created_at, kind, content, tags, sig FROM notes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []nostr.Event
	for rows.Next() {
		var n nostr.Event
		var tags string
		if err := rows.Scan(&n.ID, &n.Pubkey, &n.CreatedAt, &n.Kind, &n.Content, &tags, &n.Sig); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of note %s: %w", n.ID, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

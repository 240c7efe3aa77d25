package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

// CreateRecord inserts a post, or updates it when fields carries an ID.
// Categories, tags_input and tax_input terms are assigned in the same
// transaction. An ID that matches no post yields id 0.
func (s *Store) CreateRecord(ctx context.Context, fields map[string]string) (int64, error) {
	cols, err := recordColumns(fields)
	if err != nil {
		return 0, err
	}

	terms, err := recordTerms(fields)
	if err != nil {
		return 0, err
	}

	existing, err := ToPgInt8(fields[schema.ColumnID])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", schema.ColumnID, err)
	}

	var id int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		if existing.Valid {
			id, err = updatePost(ctx, tx, existing.Int64, cols)
		} else {
			id, err = insertPost(ctx, tx, withDefaults(cols, fields), ToPgUUID(core.RunIDFromContext(ctx)))
		}
		if err != nil || id == 0 {
			return err
		}

		for _, taxonomy := range sortedKeys(terms) {
			if err := replaceTerms(ctx, tx, id, terms[taxonomy], taxonomy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// withDefaults derives post_name from the title when it is not given.
func withDefaults(cols []column, fields map[string]string) []column {
	if strings.TrimSpace(fields["post_name"]) != "" {
		return cols
	}
	if slug := Slugify(fields[schema.ColumnTitle]); slug != "" {
		cols = append(cols, column{name: "post_name", value: slug})
	}
	return cols
}

func insertPost(ctx context.Context, db DBTX, cols []column, runID pgtype.UUID) (int64, error) {
	names := make([]string, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)

	for i, c := range cols {
		names = append(names, pgx.Identifier{c.name}.Sanitize())
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, c.value)
	}
	names = append(names, "import_run_id")
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
	args = append(args, runID)

	query := fmt.Sprintf("INSERT INTO posts (%s) VALUES (%s) RETURNING id",
		strings.Join(names, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

func updatePost(ctx context.Context, db DBTX, id int64, cols []column) (int64, error) {
	if len(cols) == 0 {
		var found int64
		err := db.QueryRow(ctx, "SELECT id FROM posts WHERE id = $1", id).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("find post %d: %w", id, err)
		}
		return found, nil
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c.name}.Sanitize(), i+1)
		args = append(args, c.value)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d RETURNING id", strings.Join(sets, ", "), len(args))

	var updated int64
	err := db.QueryRow(ctx, query, args...).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update post %d: %w", id, err)
	}
	return updated, nil
}

// recordTerms collects the term names the list and map fields assign,
// keyed by taxonomy.
func recordTerms(fields map[string]string) (map[string][]string, error) {
	terms := make(map[string][]string)

	if names := SplitList(fields["post_category"]); len(names) > 0 {
		terms[schema.CategoryTaxonomy] = names
	}
	if names := SplitList(fields["tags_input"]); len(names) > 0 {
		terms[schema.TagTaxonomy] = names
	}

	raw := strings.TrimSpace(fields["tax_input"])
	if raw == "" {
		return terms, nil
	}

	var taxInput map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &taxInput); err != nil {
		return nil, fmt.Errorf("tax_input: %w", err)
	}
	for taxonomy, value := range taxInput {
		names, err := decodeTermList(value)
		if err != nil {
			return nil, fmt.Errorf("tax_input %s: %w", taxonomy, err)
		}
		if len(names) > 0 {
			terms[taxonomy] = append(terms[taxonomy], names...)
		}
	}
	return terms, nil
}

// decodeTermList accepts either a JSON array of names or a comma-separated
// string.
func decodeTermList(value json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		var out []string
		for _, name := range list {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
		return out, nil
	}

	var csv string
	if err := json.Unmarshal(value, &csv); err != nil {
		return nil, errors.New("expected a list of names or a comma-separated string")
	}
	return SplitList(csv), nil
}

// SetMetadata adds one key/value pair. Keys may repeat on a record.
func (s *Store) SetMetadata(ctx context.Context, recordID int64, key, value string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES ($1, $2, $3)",
		recordID, key, value)
	if err != nil {
		return fmt.Errorf("insert meta %s: %w", key, err)
	}
	return nil
}

// SetPrimaryImage stores the media reference under the thumbnail key,
// replacing any previous one.
func (s *Store) SetPrimaryImage(ctx context.Context, recordID, mediaID int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return upsertMeta(ctx, tx, recordID, schema.ThumbnailMetaKey, fmt.Sprintf("%d", mediaID))
	})
}

func upsertMeta(ctx context.Context, db DBTX, recordID int64, key, value string) error {
	tag, err := db.Exec(ctx,
		"UPDATE postmeta SET meta_value = $3 WHERE post_id = $1 AND meta_key = $2",
		recordID, key, value)
	if err != nil {
		return fmt.Errorf("update meta %s: %w", key, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = db.Exec(ctx,
		"INSERT INTO postmeta (post_id, meta_key, meta_value) VALUES ($1, $2, $3)",
		recordID, key, value)
	if err != nil {
		return fmt.Errorf("insert meta %s: %w", key, err)
	}
	return nil
}

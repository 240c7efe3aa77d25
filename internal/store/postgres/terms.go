package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/unicode/norm"
)

// SetTags replaces the record's terms in taxonomy with tags, creating
// terms that do not exist yet.
func (s *Store) SetTags(ctx context.Context, recordID int64, tags []string, taxonomy string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return replaceTerms(ctx, tx, recordID, tags, taxonomy)
	})
}

func replaceTerms(ctx context.Context, db DBTX, recordID int64, names []string, taxonomy string) error {
	_, err := db.Exec(ctx, `
		DELETE FROM term_relationships tr
		USING terms t
		WHERE tr.term_id = t.term_id AND tr.post_id = $1 AND t.taxonomy = $2`,
		recordID, taxonomy)
	if err != nil {
		return fmt.Errorf("clear %s terms: %w", taxonomy, err)
	}

	seen := make(map[string]bool, len(names))
	order := 0
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		termID, err := ensureTerm(ctx, db, taxonomy, name, slug)
		if err != nil {
			return err
		}

		_, err = db.Exec(ctx,
			"INSERT INTO term_relationships (post_id, term_id, term_order) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
			recordID, termID, order)
		if err != nil {
			return fmt.Errorf("assign %s term %q: %w", taxonomy, name, err)
		}
		order++
	}
	return nil
}

func ensureTerm(ctx context.Context, db DBTX, taxonomy, name, slug string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO terms (taxonomy, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (taxonomy, slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING term_id`,
		taxonomy, strings.TrimSpace(name), slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure %s term %q: %w", taxonomy, name, err)
	}
	return id, nil
}

// Slugify lowercases s, strips accents and joins words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}
	return b.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

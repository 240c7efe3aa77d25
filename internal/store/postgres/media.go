package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/media"
)

// attachedFileMetaKey records the media library key of an attachment post.
const attachedFileMetaKey = "_wp_attached_file"

// SideloadMedia copies filePath into the media library and creates an
// attachment post whose parent is recordID. It returns the attachment ID.
func (s *Store) SideloadMedia(ctx context.Context, recordID int64, filePath string) (int64, error) {
	if s.media == nil {
		return 0, errors.New("no media library configured")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat attachment: %w", err)
	}

	name := filepath.Base(filePath)
	contentType := media.ContentType(name)
	key := media.ObjectKey(s.now(), recordID, name)

	obj, err := s.media.Put(ctx, key, f, info.Size(), contentType)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO posts (post_title, post_name, post_status, post_type, post_mime_type, post_parent, guid, import_run_id)
			VALUES ($1, $2, 'inherit', 'attachment', $3, $4, $5, $6)
			RETURNING id`,
			strings.TrimSuffix(name, filepath.Ext(name)),
			Slugify(strings.TrimSuffix(name, filepath.Ext(name))),
			contentType,
			recordID,
			obj.URL,
			ToPgUUID(core.RunIDFromContext(ctx)),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
		return upsertMeta(ctx, tx, id, attachedFileMetaKey, obj.Key)
	})
	if err != nil {
		if derr := s.media.Delete(ctx, obj.Key); derr != nil {
			err = errors.Join(err, derr)
		}
		return 0, err
	}
	return id, nil
}

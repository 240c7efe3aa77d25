package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

var errInvalidAttachmentName = errors.New("attachment must be a file name relative to the attachments directory")

// Importer writes one RoutedRow at a time through a ContentStore.
// It keeps no state between rows.
type Importer struct {
	store          ContentStore
	attachmentsDir string
}

// NewImporter creates an Importer that resolves attachment names against
// attachmentsDir.
func NewImporter(store ContentStore, attachmentsDir string) *Importer {
	return &Importer{
		store:          store,
		attachmentsDir: attachmentsDir,
	}
}

// AttachmentsDir returns the directory attachment names resolve against.
func (im *Importer) AttachmentsDir() string {
	return im.attachmentsDir
}

// Import runs the write sequence for one row: create the record, then
// metadata, attachment and tags. The last three run only when the record
// was created, and do not depend on each other.
func (im *Importer) Import(ctx context.Context, row RoutedRow) ImportResult {
	result := ImportResult{
		Line:  row.Line,
		Title: row.Title(),
	}

	id, err := im.store.CreateRecord(ctx, row.Fields)
	if err != nil || id == 0 {
		result.Errors = append(result.Errors, newRecordCreationError(result.Title, err))
		return result
	}
	result.Created = true
	result.RecordID = id

	result.Errors = append(result.Errors, im.attachMetadata(ctx, id, result.Title, row.Metadata)...)

	if row.Attachment != "" {
		if e := im.attachMedia(ctx, id, result.Title, row.Attachment); e != nil {
			result.Errors = append(result.Errors, e)
		}
	}

	if e := im.attachTags(ctx, id, result.Title, row.Tags); e != nil {
		result.Errors = append(result.Errors, e)
	}

	return result
}

// attachMetadata adds every pair independently. A record without metadata
// is reported, since every resource is expected to carry some.
func (im *Importer) attachMetadata(ctx context.Context, id int64, title string, meta map[string]string) []*RecordError {
	if len(meta) == 0 {
		return []*RecordError{newNoMetadataError(id, title)}
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []*RecordError
	for _, key := range keys {
		if err := im.store.SetMetadata(ctx, id, key, meta[key]); err != nil {
			errs = append(errs, newMetadataError(id, title, key, err))
		}
	}
	return errs
}

func (im *Importer) attachMedia(ctx context.Context, id int64, title, name string) *RecordError {
	path, err := im.resolveAttachment(name)
	if err != nil {
		return newAttachmentMissingError(id, title, name, err)
	}

	mediaID, err := im.store.SideloadMedia(ctx, id, path)
	if err != nil {
		return newAttachmentStoreError(id, title, name, fmt.Errorf("sideload: %w", err))
	}
	if mediaID == 0 {
		return newAttachmentStoreError(id, title, name, errors.New("sideload returned no media reference"))
	}

	if err := im.store.SetPrimaryImage(ctx, id, mediaID); err != nil {
		return newAttachmentStoreError(id, title, name, fmt.Errorf("set primary image: %w", err))
	}
	return nil
}

// resolveAttachment maps an attachment name to a regular file inside the
// attachments directory.
func (im *Importer) resolveAttachment(name string) (string, error) {
	if filepath.IsAbs(name) || strings.Contains(name, "://") {
		return "", errInvalidAttachmentName
	}

	clean := filepath.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errInvalidAttachmentName
	}

	path := filepath.Join(im.attachmentsDir, clean)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	return path, nil
}

// attachTags submits the whole tag list in one call. Blank tag cells are
// dropped first; a row with no tags makes no call.
func (im *Importer) attachTags(ctx context.Context, id int64, title string, tags []string) *RecordError {
	var clean []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return nil
	}

	if err := im.store.SetTags(ctx, id, clean, schema.TagTaxonomy); err != nil {
		return newTagError(id, title, err)
	}
	return nil
}

// Package media stores sideloaded attachment files. Backends are a local
// directory served under a base URL, or an S3 bucket.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Object is a stored media file.
type Object struct {
	Key         string // Storage key, relative to the library root
	URL         string // Public URL of the file
	ContentType string
	Size        int64
}

// Storage is a media library backend.
type Storage interface {
	// Put stores r under key and returns where it landed.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)

	// Delete removes a stored file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds the storage key for a file attached to recordID, using
// the year/month layout of a content upload directory.
func ObjectKey(now time.Time, recordID int64, filename string) string {
	base := sanitizeName(filepath.Base(filename))
	return path.Join(now.Format("2006"), now.Format("01"), fmt.Sprintf("%d-%s", recordID, base))
}

// ContentType guesses the MIME type from the file extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// sanitizeName keeps letters, digits, dot, dash and underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func joinURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + key
}

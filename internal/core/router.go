package core

// router.go turns an import source into RoutedRows.
//
// Each header name is routed to exactly one bucket, in this precedence:
//
//  1. a core record field (schema.CoreFieldSpecs) -> RoutedRow.Fields
//  2. the attachment marker (_attachment)       -> RoutedRow.Attachment
//  3. the tag marker (_tag)                     -> appended to RoutedRow.Tags
//  4. anything else                             -> RoutedRow.Metadata
//
// Rows narrower than the header are padded with empty cells; cells beyond
// the header width are dropped. Width keeps the original cell count.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

// Bucket is the destination of a column.
type Bucket int

const (
	BucketField Bucket = iota
	BucketAttachment
	BucketTag
	BucketMetadata
)

func (b Bucket) String() string {
	switch b {
	case BucketField:
		return "field"
	case BucketAttachment:
		return "attachment"
	case BucketTag:
		return "tag"
	default:
		return "metadata"
	}
}

// MaxFileSize is the default maximum import source size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

const utf8BOM = "\uFEFF"

// Route returns the bucket a header name routes to. It depends on nothing
// but the name.
func Route(header string) Bucket {
	switch {
	case schema.IsCoreField(header):
		return BucketField
	case header == schema.AttachmentColumn:
		return BucketAttachment
	case header == schema.TagColumn:
		return BucketTag
	default:
		return BucketMetadata
	}
}

// RouteRow routes one data row's cells by header.
func RouteRow(headers, cells []string, line int) RoutedRow {
	row := RoutedRow{
		Fields:   make(map[string]string),
		Metadata: make(map[string]string),
		Tags:     []string{},
		Line:     line,
		Width:    len(cells),
	}

	for i, header := range headers {
		var value string
		if i < len(cells) {
			value = cells[i]
		}

		switch Route(header) {
		case BucketField:
			row.Fields[header] = value
		case BucketAttachment:
			row.Attachment = value
		case BucketTag:
			row.Tags = append(row.Tags, value)
		default:
			row.Metadata[header] = value
		}
	}

	return row
}

// ParseFile reads an import source from disk. CSV is the default format;
// files ending in .xlsx are read from their first worksheet.
// Any failure is returned as a *FileError.
func ParseFile(path string, maxSize int64) (*ParseResult, error) {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileError{Path: path, Err: errors.New("is a directory")}
	}
	if info.Size() > maxSize {
		return nil, &FileError{
			Path: path,
			Err:  fmt.Errorf("file too large: %d bytes exceeds %dMB limit", info.Size(), maxSize/(1024*1024)),
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		result, err := parseXLSX(path)
		if err != nil {
			return nil, &FileError{Path: path, Err: err}
		}
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	result, err := ParseReader(bytes.NewReader(sanitizeUTF8(data)))
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return result, nil
}

// ParseReader parses CSV from r. An empty input or a header-only input
// yields a result with no rows and no error.
func ParseReader(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &ParseResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	result := &ParseResult{Headers: headers}

	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		result.Rows = append(result.Rows, RouteRow(headers, cells, line))
	}

	return result, nil
}

// skipBOM drops a leading UTF-8 byte order mark. It must run before the
// CSV tokenizer, which would otherwise see the mark ahead of an opening
// quote and keep the quotes as part of the first header.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		br.Discard(len(utf8BOM))
	}
	return br
}

// sourceRow is one already-split row and its 1-based line in the source.
type sourceRow struct {
	Line  int
	Cells []string
}

// routeRecords routes already-split rows whose first entry is the header.
// Line numbers come from the rows, so skipped blank rows do not shift them.
func routeRecords(rows []sourceRow) *ParseResult {
	if len(rows) == 0 {
		return &ParseResult{}
	}

	headers := rows[0].Cells
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}

	result := &ParseResult{Headers: headers}
	for _, row := range rows[1:] {
		result.Rows = append(result.Rows, RouteRow(headers, row.Cells, row.Line))
	}
	return result
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

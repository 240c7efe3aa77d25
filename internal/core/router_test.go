package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRoute(t *testing.T) {
	tests := []struct {
		header string
		want   Bucket
	}{
		{"post_title", BucketField},
		{"post_status", BucketField},
		{"ID", BucketField},
		{"tax_input", BucketField},
		{"_attachment", BucketAttachment},
		{"_tag", BucketTag},
		{"author", BucketMetadata},
		{"Post_Title", BucketMetadata},
		{"", BucketMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.header))
			assert.Equal(t, tt.want, Route(tt.header), "routing must not depend on call history")
		})
	}
}

func TestParseReader_RoutesColumns(t *testing.T) {
	src := "post_title,post_status,_attachment,_tag,_tag,author\n" +
		"Hello,publish,pic.jpg,news,local,Ann\n"

	result, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, map[string]string{"post_title": "Hello", "post_status": "publish"}, row.Fields)
	assert.Equal(t, "pic.jpg", row.Attachment)
	assert.Equal(t, []string{"news", "local"}, row.Tags)
	assert.Equal(t, map[string]string{"author": "Ann"}, row.Metadata)
	assert.Equal(t, 2, row.Line)
	assert.Equal(t, 6, row.Width)
	assert.Equal(t, "Hello", row.Title())
}

func TestParseReader_OneRowPerDataLine(t *testing.T) {
	src := "post_title,author\nA,x\nB,y\nC,z\n"

	result, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, result.Rows[i].Title())
		assert.Equal(t, i+2, result.Rows[i].Line)
	}
}

func TestParseReader_TagsKeepColumnOrder(t *testing.T) {
	src := "_tag,post_title,_tag,_tag\nfirst,T,second,third\n"

	result, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"first", "second", "third"}, result.Rows[0].Tags)
}

func TestParseReader_NoTagColumn(t *testing.T) {
	result, err := ParseReader(strings.NewReader("post_title,author\nT,A\n"))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.NotNil(t, result.Rows[0].Tags)
	assert.Empty(t, result.Rows[0].Tags)
	assert.Empty(t, result.Rows[0].Attachment)
}

func TestParseReader_RaggedRows(t *testing.T) {
	src := "post_title,author,genre\nShort,Ann\nLong,Bob,sf,extra\n"

	result, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	short := result.Rows[0]
	assert.Equal(t, 2, short.Width)
	assert.Equal(t, map[string]string{"author": "Ann", "genre": ""}, short.Metadata)

	long := result.Rows[1]
	assert.Equal(t, 4, long.Width)
	assert.Equal(t, map[string]string{"author": "Bob", "genre": "sf"}, long.Metadata)
}

func TestParseReader_QuotedCells(t *testing.T) {
	src := "post_title,post_content\n\"Hello, world\",\"line one\nline two\"\nNext,body\n"

	result, err := ParseReader(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Hello, world", result.Rows[0].Title())
	assert.Equal(t, "line one\nline two", result.Rows[0].Fields["post_content"])
	assert.Equal(t, 4, result.Rows[1].Line)
}

func TestParseReader_ByteOrderMark(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bare header", "\uFEFFpost_title,custom_field\nHello,42\n"},
		{"quoted header", "\uFEFF\"post_title\",\"custom_field\"\n\"Hello\",\"42\"\n"},
		{"no mark", "\"post_title\",\"custom_field\"\n\"Hello\",\"42\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseReader(strings.NewReader(tt.src))
			require.NoError(t, err)
			require.Len(t, result.Rows, 1)

			assert.Equal(t, []string{"post_title", "custom_field"}, result.Headers)
			assert.Equal(t, "Hello", result.Rows[0].Title())
			assert.Equal(t, map[string]string{"custom_field": "42"}, result.Rows[0].Metadata)
		})
	}
}

func TestParseReader_Examples(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		fields     map[string]string
		tags       []string
		attachment string
		metadata   map[string]string
	}{
		{
			name: "quoted row with repeated tags and attachment",
			src: "post_title,post_status,_tag,_tag,_attachment,custom_field\n" +
				`"Hello","publish","news","featured","photo.jpg","42"` + "\n",
			fields:     map[string]string{"post_title": "Hello", "post_status": "publish"},
			tags:       []string{"news", "featured"},
			attachment: "photo.jpg",
			metadata:   map[string]string{"custom_field": "42"},
		},
		{
			name:     "metadata only",
			src:      "post_title,author\nSolo,Ann\n",
			fields:   map[string]string{"post_title": "Solo"},
			tags:     []string{},
			metadata: map[string]string{"author": "Ann"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseReader(strings.NewReader(tt.src))
			require.NoError(t, err)
			require.Len(t, result.Rows, 1)

			row := result.Rows[0]
			assert.Equal(t, tt.fields, row.Fields)
			assert.Equal(t, tt.tags, row.Tags)
			assert.Equal(t, tt.attachment, row.Attachment)
			assert.Equal(t, tt.metadata, row.Metadata)
		})
	}
}

func TestParseReader_EmptyInputs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		result, err := ParseReader(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Empty(t, result.Headers)
	})

	t.Run("header only", func(t *testing.T) {
		result, err := ParseReader(strings.NewReader("post_title,author\n"))
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Equal(t, []string{"post_title", "author"}, result.Headers)
	})
}

func TestParseFile(t *testing.T) {
	t.Run("strips byte order mark", func(t *testing.T) {
		path := writeSource(t, "bom.csv", "\uFEFFpost_title,author\nHello,Ann\n")

		result, err := ParseFile(path, 0)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "post_title", result.Headers[0])
		assert.Equal(t, "Hello", result.Rows[0].Title())
	})

	t.Run("replaces invalid utf-8", func(t *testing.T) {
		path := writeSource(t, "latin1.csv", "post_title\ncaf\xe9\n")

		result, err := ParseFile(path, 0)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "caf\uFFFD", result.Rows[0].Title())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseFile(filepath.Join(t.TempDir(), "nope.csv"), 0)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ParseFile(t.TempDir(), 0)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("too large", func(t *testing.T) {
		path := writeSource(t, "big.csv", "post_title\nHello\n")

		_, err := ParseFile(path, 4)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, err.Error(), "file too large")
	})

	t.Run("unreadable workbook", func(t *testing.T) {
		path := writeSource(t, "broken.xlsx", "not a zip archive")

		_, err := ParseFile(path, 0)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, err.Error(), "open workbook")
	})
}

func TestRouteRecords(t *testing.T) {
	result := routeRecords([]sourceRow{
		{Line: 1, Cells: []string{"\uFEFFpost_title", "_tag"}},
		{Line: 2, Cells: []string{"A", "x"}},
		{Line: 5, Cells: []string{"B"}},
	})

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "post_title", result.Headers[0])
	assert.Equal(t, "A", result.Rows[0].Title())
	assert.Equal(t, []string{"x"}, result.Rows[0].Tags)
	assert.Equal(t, []string{""}, result.Rows[1].Tags)
	assert.Equal(t, 5, result.Rows[1].Line)

	assert.Empty(t, routeRecords(nil).Rows)
}

func TestBucketString(t *testing.T) {
	assert.Equal(t, "field", BucketField.String())
	assert.Equal(t, "attachment", BucketAttachment.String())
	assert.Equal(t, "tag", BucketTag.String())
	assert.Equal(t, "metadata", BucketMetadata.String())
}

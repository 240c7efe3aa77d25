package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

func TestStore_RunsThroughService(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.jpg"), []byte("img"), 0o644))
	source := filepath.Join(dir, "import.csv")
	require.NoError(t, os.WriteFile(source, []byte(
		"post_title,post_status,_attachment,_tag,_tag,author\n"+
			"Hello,publish,pic.jpg,news,local,Ann\n"), 0o644))

	store := New()
	svc := core.NewService(store, core.ServiceConfig{Source: source, AttachmentsDir: dir})

	report, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Created)

	ids := store.Records()
	require.Len(t, ids, 1)
	rec, ok := store.Record(ids[0])
	require.True(t, ok)

	assert.Equal(t, report.RunID, rec.RunID)
	assert.Equal(t, "publish", rec.Fields["post_status"])
	author, _ := rec.Meta("author")
	assert.Equal(t, "Ann", author)
	assert.Equal(t, []string{"news", "local"}, rec.Terms[schema.TagTaxonomy])

	require.Len(t, rec.Media, 1)
	thumb, _ := rec.Meta(schema.ThumbnailMetaKey)
	assert.Equal(t, "2", thumb)
	path, ok := store.MediaPath(rec.Media[0])
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "pic.jpg"), path)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
}

func TestStore_UpdateByID(t *testing.T) {
	store := New()
	ctx := context.Background()

	id, err := store.CreateRecord(ctx, map[string]string{"post_title": "First"})
	require.NoError(t, err)

	updated, err := store.CreateRecord(ctx, map[string]string{"ID": "1", "post_title": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, id, updated)

	rec, _ := store.Record(id)
	assert.Equal(t, "Renamed", rec.Fields["post_title"])

	missing, err := store.CreateRecord(ctx, map[string]string{"ID": "99"})
	require.NoError(t, err)
	assert.Zero(t, missing)

	_, err = store.CreateRecord(ctx, map[string]string{"ID": "abc"})
	assert.Error(t, err)
}

func TestStore_UnknownRecord(t *testing.T) {
	store := New()
	ctx := context.Background()

	assert.ErrorIs(t, store.SetMetadata(ctx, 5, "k", "v"), ErrRecordNotFound)
	assert.ErrorIs(t, store.SetTags(ctx, 5, []string{"a"}, "post_tag"), ErrRecordNotFound)
	_, err := store.SideloadMedia(ctx, 5, "/tmp/x.jpg")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStore_ListRunsLimit(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordRun(ctx, &core.Report{RunID: id}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

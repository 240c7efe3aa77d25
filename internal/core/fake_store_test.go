package core

import (
	"context"
	"errors"
	"sync"
)

var errStore = errors.New("store unavailable")

type metaCall struct {
	ID    int64
	Key   string
	Value string
}

type tagCall struct {
	ID       int64
	Tags     []string
	Taxonomy string
}

// fakeStore records every call and fails the ones it is told to.
type fakeStore struct {
	mu sync.Mutex

	nextID int64

	failCreate    map[string]bool // by post_title
	zeroID        map[string]bool // by post_title
	failMetaKeys  map[string]bool
	failSideload  bool
	zeroMedia     bool
	failPrimary   bool
	failTags      bool
	runs          []*Report
	runIDs        []string
	creates       []map[string]string
	metas         []metaCall
	sideloads     []string
	primaryImages [][2]int64
	tagCalls      []tagCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:       100,
		failCreate:   map[string]bool{},
		zeroID:       map[string]bool{},
		failMetaKeys: map[string]bool{},
	}
}

func (f *fakeStore) CreateRecord(ctx context.Context, fields map[string]string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, fields)
	f.runIDs = append(f.runIDs, RunIDFromContext(ctx))

	title := fields["post_title"]
	if f.failCreate[title] {
		return 0, errStore
	}
	if f.zeroID[title] {
		return 0, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeStore) SetMetadata(_ context.Context, id int64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metas = append(f.metas, metaCall{ID: id, Key: key, Value: value})
	if f.failMetaKeys[key] {
		return errStore
	}
	return nil
}

func (f *fakeStore) SideloadMedia(_ context.Context, _ int64, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sideloads = append(f.sideloads, path)
	if f.failSideload {
		return 0, errStore
	}
	if f.zeroMedia {
		return 0, nil
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeStore) SetPrimaryImage(_ context.Context, recordID, mediaID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.primaryImages = append(f.primaryImages, [2]int64{recordID, mediaID})
	if f.failPrimary {
		return errStore
	}
	return nil
}

func (f *fakeStore) SetTags(_ context.Context, id int64, tags []string, taxonomy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tagCalls = append(f.tagCalls, tagCall{ID: id, Tags: tags, Taxonomy: taxonomy})
	if f.failTags {
		return errStore
	}
	return nil
}

// recordingStore adds run history to fakeStore.
type recordingStore struct {
	*fakeStore
	failRecord bool
}

func (r *recordingStore) RecordRun(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failRecord {
		return errStore
	}
	r.runs = append(r.runs, report)
	return nil
}

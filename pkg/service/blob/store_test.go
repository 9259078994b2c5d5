package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anzhiyu-c/anheyu-appdist/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
)

// countingProvider 统计对旧格式描述文件的读取次数
type countingProvider struct {
	storage.IStorageProvider
	legacyReads atomic.Int32
}

func (p *countingProvider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if strings.HasSuffix(name, constant.LegacyBuildInfoFileName) {
		p.legacyReads.Add(1)
	}
	return p.IStorageProvider.Get(ctx, name)
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	p, err := storage.NewLocalProvider(root)
	require.NoError(t, err)
	return NewStore(p), root
}

func writeRaw(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestStore_PutGetDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "u1", "app.apk", []byte("apk-bytes")))
	data, err := s.Get(ctx, "u1", "app.apk")
	require.NoError(t, err)
	assert.Equal(t, "apk-bytes", string(data))

	_, err = s.Get(ctx, "u1", "missing.bin")
	assert.ErrorIs(t, err, constant.ErrNotFound)

	require.NoError(t, s.DeleteTree(ctx, "u1"))
	ok, err := s.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteTree(ctx, "u1"), constant.ErrNotFound)
}

func TestStore_RejectsUnsafeNames(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "..", "app.apk", []byte("x")), constant.ErrBadRequest)
	assert.ErrorIs(t, s.Put(ctx, "_indexes", "app.apk", []byte("x")), constant.ErrBadRequest)
	assert.ErrorIs(t, s.Put(ctx, "a/b", "app.apk", []byte("x")), constant.ErrBadRequest)
	assert.ErrorIs(t, s.Put(ctx, "ok", "../escape", []byte("x")), constant.ErrBadRequest)
	assert.ErrorIs(t, ValidateBundleID("com/evil"), constant.ErrBadRequest)
	assert.NoError(t, ValidateBundleID("com.example.app_1-beta"))
}

func TestStore_ListUploadsSkipsReserved(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b", "app.apk", []byte("x")))
	require.NoError(t, s.Put(ctx, "a", "app.ipa", []byte("x")))
	require.NoError(t, s.SetLatest(ctx, "com.x", "a"))
	writeRaw(t, root, "stray.txt", "not an upload")

	ids, err := s.ListUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStore_LatestIndex(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Latest(ctx, "com.x.app")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetLatest(ctx, "com.x.app", "first"))
	require.NoError(t, s.SetLatest(ctx, "com.x.app", "second"))
	id, ok, err := s.Latest(ctx, "com.x.app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", id)

	// 手工编辑过的索引文件可能带换行
	writeRaw(t, root, "_indexes/latest_upload_by_bundle_id/com.y.txt", "  third\n")
	id, ok, err = s.Latest(ctx, "com.y")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "third", id)
}

func TestStore_DescriptorRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &model.BuildRecord{
		UploadID:      "u1",
		Platform:      constant.PlatformAndroid,
		BundleID:      "com.x.app",
		AppTitle:      "X",
		BundleVersion: "1.0",
		VersionCode:   model.Int64Ptr(7),
		FileSize:      42,
		CreatedAt:     &created,
	}
	require.NoError(t, s.SaveDescriptor(ctx, r))

	state, err := s.Classify(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, state)

	got, err := s.LoadDescriptor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestStore_CorruptDescriptor(t *testing.T) {
	s, root := newTestStore(t)
	writeRaw(t, root, "u1/build_info.json", "{not json")

	_, err := s.LoadDescriptor(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrCorruptDescriptor)
}

func TestStore_MissingDescriptor(t *testing.T) {
	s, root := newTestStore(t)
	writeRaw(t, root, "u1/app.ipa", "ipa")

	state, err := s.Classify(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, StateMissing, state)

	_, next, err := s.Transition(context.Background(), "u1", state)
	assert.ErrorIs(t, err, constant.ErrNotFound)
	assert.Equal(t, StateMissing, next)
}

func TestStore_LegacyMigration(t *testing.T) {
	root := t.TempDir()
	local, err := storage.NewLocalProvider(root)
	require.NoError(t, err)
	counting := &countingProvider{IStorageProvider: local}
	s := NewStore(counting)
	ctx := context.Background()

	writeRaw(t, root, "L/app_info.json", `{"app_title":"Old","bundle_id":"com.old","bundle_version":"0.9"}`)
	writeRaw(t, root, "L/app.ipa", "12345")

	state, err := s.Classify(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, StateLegacy, state)

	r, next, err := s.Transition(ctx, "L", state)
	require.NoError(t, err)
	assert.Equal(t, StateCurrent, next)
	assert.Equal(t, "L", r.UploadID)
	assert.Equal(t, constant.PlatformIOS, r.Platform)
	assert.Equal(t, "com.old", r.BundleID)
	assert.Equal(t, "Old", r.AppTitle)
	assert.Equal(t, "0.9", r.BundleVersion)
	assert.Equal(t, int64(5), r.FileSize)
	assert.Nil(t, r.CreatedAt)
	assert.Nil(t, r.BuildNumber)

	_, err = os.Stat(filepath.Join(root, "L", "build_info.json"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), counting.legacyReads.Load())

	// 迁移后旧文件不再被读取，即使被破坏也不影响
	writeRaw(t, root, "L/app_info.json", "garbage")
	again, err := s.LoadDescriptor(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, r, again)
	assert.Equal(t, int32(1), counting.legacyReads.Load())
}

func TestStore_LegacyMigrationIsIdempotentUnderConcurrency(t *testing.T) {
	s, root := newTestStore(t)
	writeRaw(t, root, "L/app_info.json", `{"app_title":"Old","bundle_id":"com.old","bundle_version":"0.9"}`)

	var wg sync.WaitGroup
	results := make([]*model.BuildRecord, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.MigrateLegacy(context.Background(), "L")
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "com.old", results[i].BundleID)
		assert.Equal(t, int64(0), results[i].FileSize)
	}
}

func TestStore_UploadPlatform(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "app.apk", []byte("x")))
	require.NoError(t, s.Put(ctx, "i", "app.ipa", []byte("x")))
	require.NoError(t, s.Put(ctx, "none", constant.BuildInfoFileName, []byte("{}")))

	p, err := s.UploadPlatform(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, constant.PlatformAndroid, p)

	p, err = s.UploadPlatform(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, constant.PlatformIOS, p)

	_, err = s.UploadPlatform(ctx, "none")
	assert.ErrorIs(t, err, constant.ErrNotFound)
}

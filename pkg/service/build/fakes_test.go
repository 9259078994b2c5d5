package build

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-appdist/pkg/service/inspect"
)

// memRepo 内存中的 BuildRepository，可切换为不可用
type memRepo struct {
	mu          sync.Mutex
	rows        map[string]*model.BuildRecord
	unavailable bool
	upserts     int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*model.BuildRecord)}
}

func (m *memRepo) setUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

func (m *memRepo) check(op string) error {
	if m.unavailable {
		return fmt.Errorf("%w: %s: connection refused", constant.ErrStoreUnavailable, op)
	}
	return nil
}

func (m *memRepo) Upsert(_ context.Context, r *model.BuildRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("upsert"); err != nil {
		return err
	}
	m.upserts++
	m.rows[r.UploadID] = r.Clone()
	return nil
}

func (m *memRepo) FindByUploadID(_ context.Context, id string) (*model.BuildRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("find"); err != nil {
		return nil, err
	}
	return m.rows[id].Clone(), nil
}

func (m *memRepo) FindAll(_ context.Context) ([]*model.BuildRecord, error) {
	return m.filter("find_all", func(*model.BuildRecord) bool { return true })
}

func (m *memRepo) FindByBundleID(_ context.Context, bundleID string) ([]*model.BuildRecord, error) {
	return m.filter("find_by_bundle", func(r *model.BuildRecord) bool { return r.BundleID == bundleID })
}

func (m *memRepo) FindByDuplicateKey(_ context.Context, key model.DuplicateKey) (*model.BuildRecord, error) {
	rows, err := m.filter("find_by_key", key.Matches)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (m *memRepo) UpdateAppInfo(_ context.Context, bundleID string, u model.AppInfoUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("update_app_info"); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range m.rows {
		if r.BundleID == bundleID {
			u.Apply(r)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete"); err != nil {
		return false, err
	}
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memRepo) filter(op string, keep func(*model.BuildRecord) bool) ([]*model.BuildRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(op); err != nil {
		return nil, err
	}
	out := make([]*model.BuildRecord, 0)
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memRepo) get(id string) *model.BuildRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Clone()
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// fakeInspector 将形如 "android|com.x.app|1.0|5|payload" 的字节解析为构建记录，
// created_at 每次调用递增一秒
type fakeInspector struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeInspector) Inspect(platform constant.Platform, raw []byte) (*model.BuildRecord, error) {
	parts := strings.Split(string(raw), "|")
	if len(parts) != 5 || constant.Platform(parts[0]) != platform {
		return nil, fmt.Errorf("%w: 无法解析", constant.ErrInvalidPackage)
	}
	f.mu.Lock()
	f.now = f.now.Add(time.Second)
	created := f.now
	f.mu.Unlock()

	r := &model.BuildRecord{
		UploadID:      inspect.UploadID(raw),
		Platform:      platform,
		BundleID:      parts[1],
		AppTitle:      parts[1],
		BundleVersion: parts[2],
		FileSize:      int64(len(raw)),
		CreatedAt:     &created,
	}
	if parts[3] != "" {
		if platform == constant.PlatformAndroid {
			code, err := strconv.ParseInt(parts[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", constant.ErrInvalidPackage, err)
			}
			r.VersionCode = &code
		} else {
			r.BuildNumber = model.StringPtr(parts[3])
		}
	}
	return r, nil
}

func apk(bundle, version string, code int, payload string) []byte {
	return []byte(fmt.Sprintf("android|%s|%s|%d|%s", bundle, version, code, payload))
}

func ipa(bundle, version, build, payload string) []byte {
	return []byte(fmt.Sprintf("ios|%s|%s|%s|%s", bundle, version, build, payload))
}

// recordingObserver 记录观察到的事件
type recordingObserver struct {
	mu        sync.Mutex
	outcomes  []string
	fallbacks []string
	failures  []string
}

func (o *recordingObserver) ObserveIngest(_ constant.Platform, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveFallback(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, op)
}

func (o *recordingObserver) ObserveMirrorFailure(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, op)
}

func (o *recordingObserver) ObserveReconcile(*ReconcileReport, error) {}

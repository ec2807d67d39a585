package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/picvault/pkg/configs"
	ctxPkg "github.com/yeisme/picvault/pkg/context"
	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/service"
	"github.com/yeisme/picvault/pkg/internal/storage"
	dbc "github.com/yeisme/picvault/pkg/internal/storage/db"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
	"github.com/yeisme/picvault/pkg/internal/types"
)

// countingEngine 记录写入次数的引擎替身.
type countingEngine struct {
	name    string
	uploads atomic.Int64
	deletes atomic.Int64

	mu      sync.Mutex
	objects map[string][]byte
}

func newCountingEngine(name string) *countingEngine {
	return &countingEngine{name: name, objects: make(map[string][]byte)}
}

func (f *countingEngine) Upload(_ context.Context, key string, data []byte) (string, error) {
	f.uploads.Add(1)
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()

	return "fake://" + key, nil
}

func (f *countingEngine) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.objects[key], nil
}

func (f *countingEngine) Delete(_ context.Context, key string) error {
	f.deletes.Add(1)
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()

	return nil
}

func (f *countingEngine) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.objects[key]

	return ok, nil
}

func (f *countingEngine) URL(key string) string { return "fake://" + key }
func (f *countingEngine) Test(_ context.Context) engine.TestResult {
	return engine.TestResult{Success: true, Message: "ok"}
}
func (f *countingEngine) Usage(_ context.Context) (engine.Usage, error) {
	return engine.Usage{Available: true}, nil
}
func (f *countingEngine) Type() model.EngineType { return model.EngineTypeLocal }
func (f *countingEngine) Name() string           { return f.name }

// testEnv 测试环境：内存数据库 + 注入替身引擎的缓存.
type testEnv struct {
	ctx context.Context
	db  *gorm.DB
	eng *countingEngine
}

// newTestEnv 搭建测试环境并注册一个默认引擎.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// 内存库的多个连接各自独立，必须收敛到单连接
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&model.StorageEngine{}, &model.Image{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	eng := newCountingEngine("fake")
	reg := registry.NewWithBuilder(func(cfg *model.StorageEngine) (engine.Engine, error) {
		return eng, nil
	})

	row := &model.StorageEngine{
		Name:      "fake",
		Type:      model.EngineTypeLocal,
		IsActive:  true,
		IsDefault: true,
	}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("create engine row: %v", err)
	}

	if err := reg.Add(row); err != nil {
		t.Fatalf("seed registry: %v", err)
	}

	mgr := &storage.Manager{DB: &dbc.Client{DB: gdb}, Registry: reg}
	ctx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return &testEnv{ctx: ctx, db: gdb, eng: eng}
}

// ctxPkgRegistry 取测试环境中的引擎缓存.
func ctxPkgRegistry(env *testEnv) *registry.Registry {
	return ctxPkg.GetRegistry(env.ctx)
}

// pngBytes 生成一张纯色PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

// TestUploadThenDedup 测试重复上传相同内容命中秒传，不产生第二次存储写入.
func TestUploadThenDedup(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewImageService(env.ctx)
	data := pngBytes(t, 8, 6)

	first, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: "a.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}

	if first.Deduplicated {
		t.Error("first upload should not be deduplicated")
	}

	if first.Width != 8 || first.Height != 6 {
		t.Errorf("dimensions = %dx%d, want 8x6", first.Width, first.Height)
	}

	second, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: "copy.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if !second.Deduplicated || second.ID != first.ID {
		t.Errorf("second upload = %+v, want dedup hit on image %d", second, first.ID)
	}

	if got := env.eng.uploads.Load(); got != 1 {
		t.Errorf("engine received %d writes, want 1", got)
	}

	var count int64
	env.db.Model(&model.Image{}).Count(&count)

	if count != 1 {
		t.Errorf("images table has %d rows, want 1", count)
	}
}

// TestUploadValidation 测试大小与类型限制.
func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewImageService(env.ctx)

	upload := &configs.GetConfig().Upload
	saved := *upload

	t.Cleanup(func() { *upload = saved })

	upload.MaxSizeMB = 1
	upload.AllowedTypes = []string{"image/png"}

	if _, err := svc.Upload(env.ctx, nil, service.UploadOptions{ContentType: "image/png"}); !service.IsValidationError(err) {
		t.Errorf("empty upload error = %v, want validation error", err)
	}

	big := make([]byte, 2<<20)
	if _, err := svc.Upload(env.ctx, big, service.UploadOptions{ContentType: "image/png"}); !service.IsValidationError(err) {
		t.Errorf("oversize upload error = %v, want validation error", err)
	}

	if _, err := svc.Upload(env.ctx, []byte("x"), service.UploadOptions{ContentType: "text/html"}); !service.IsValidationError(err) {
		t.Errorf("disallowed type error = %v, want validation error", err)
	}
}

// TestConcurrentUploadsSingleRow 测试并发上传相同内容收敛为单行.
func TestConcurrentUploadsSingleRow(t *testing.T) {
	env := newTestEnv(t)
	data := pngBytes(t, 4, 4)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			svc := service.NewImageService(env.ctx)
			if _, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: "c.png", ContentType: "image/png"}); err != nil {
				t.Errorf("concurrent upload: %v", err)
			}
		}()
	}

	wg.Wait()

	var count int64
	env.db.Model(&model.Image{}).Count(&count)

	if count != 1 {
		t.Errorf("images table has %d rows, want 1", count)
	}
}

// TestSoftDeleteThenReupload 测试软删除后重传同一内容复活原行.
func TestSoftDeleteThenReupload(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewImageService(env.ctx)
	data := pngBytes(t, 2, 2)

	first, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: "a.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(env.ctx, first.ID, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := svc.GetByID(env.ctx, first.ID); err != service.ErrImageNotFound {
		t.Errorf("GetByID after delete = %v, want ErrImageNotFound", err)
	}

	again, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: "b.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}

	if again.ID != first.ID {
		t.Errorf("re-upload produced image %d, want restored image %d", again.ID, first.ID)
	}

	var row model.Image
	if err := env.db.First(&row, first.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}

	if row.IsDeleted {
		t.Error("row should be restored after re-upload")
	}
}

// TestUploadNoDefaultEngine 测试无默认引擎时上传失败.
func TestUploadNoDefaultEngine(t *testing.T) {
	env := newTestEnv(t)
	ctxPkgRegistry(env).Clear()

	svc := service.NewImageService(env.ctx)

	_, err := svc.Upload(env.ctx, pngBytes(t, 1, 1), service.UploadOptions{FileName: "a.png", ContentType: "image/png"})
	if !errors.Is(err, service.ErrEngineUnavailable) {
		t.Errorf("upload error = %v, want ErrEngineUnavailable", err)
	}
}

// TestHardDeleteRemovesObject 测试硬删除清理存储对象与元数据.
func TestHardDeleteRemovesObject(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewImageService(env.ctx)

	resp, err := svc.Upload(env.ctx, pngBytes(t, 3, 3), service.UploadOptions{FileName: "x.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(env.ctx, resp.ID, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	if got := env.eng.deletes.Load(); got != 1 {
		t.Errorf("engine received %d deletes, want 1", got)
	}

	var count int64
	env.db.Model(&model.Image{}).Count(&count)

	if count != 0 {
		t.Errorf("images table has %d rows after hard delete, want 0", count)
	}
}

// TestListFilters 测试分页与文件名过滤.
func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	svc := service.NewImageService(env.ctx)

	for i := range 3 {
		data := pngBytes(t, i+1, 1)

		name := fmt.Sprintf("cat-%d.png", i)
		if i == 2 {
			name = "dog.png"
		}

		if _, err := svc.Upload(env.ctx, data, service.UploadOptions{FileName: name, ContentType: "image/png"}); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	all, err := svc.List(env.ctx, &types.ListImagesRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if all.Total != 3 || len(all.Items) != 2 {
		t.Errorf("list total=%d items=%d, want 3 and 2", all.Total, len(all.Items))
	}

	cats, err := svc.List(env.ctx, &types.ListImagesRequest{Page: 1, PageSize: 10, Keyword: "cat"})
	if err != nil {
		t.Fatalf("list keyword: %v", err)
	}

	if cats.Total != 2 {
		t.Errorf("keyword filter total = %d, want 2", cats.Total)
	}
}

// TestUploadCapacityAccumulates 测试容量校验按数据库中的实时用量累计，
// 而不是缓存快照里的冻结值.
func TestUploadCapacityAccumulates(t *testing.T) {
	env := newTestEnv(t)

	limit := int64(300)
	row := &model.StorageEngine{
		Name:        "metered",
		Type:        model.EngineTypeLocal,
		IsActive:    true,
		MaxCapacity: &limit,
	}

	if err := env.db.Create(row).Error; err != nil {
		t.Fatalf("create engine: %v", err)
	}

	if err := ctxPkgRegistry(env).Add(row); err != nil {
		t.Fatalf("cache engine: %v", err)
	}

	svc := service.NewImageService(env.ctx)

	// 第一次写入低于上限
	first := bytes.Repeat([]byte{'a'}, 150)
	if _, err := svc.Upload(env.ctx, first, service.UploadOptions{
		FileName: "first.bin",
		EngineID: row.ID,
	}); err != nil {
		t.Fatalf("first upload: %v", err)
	}

	// 第二次写入会把累计用量推过上限
	second := bytes.Repeat([]byte{'b'}, 250)

	_, err := svc.Upload(env.ctx, second, service.UploadOptions{
		FileName: "second.bin",
		EngineID: row.ID,
	})
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Errorf("second upload error = %v, want ErrCapacityExceeded", err)
	}

	var used int64
	env.db.Model(&model.StorageEngine{}).Where("id = ?", row.ID).
		Select("used_capacity").Scan(&used)

	if used != 150 {
		t.Errorf("used_capacity = %d, want 150", used)
	}
}

// TestUploadCapacityLimit 测试容量上限拒绝写入.
func TestUploadCapacityLimit(t *testing.T) {
	env := newTestEnv(t)

	limit := int64(10)
	row := &model.StorageEngine{
		Name:        "tiny",
		Type:        model.EngineTypeLocal,
		IsActive:    true,
		MaxCapacity: &limit,
	}

	if err := env.db.Create(row).Error; err != nil {
		t.Fatalf("create engine: %v", err)
	}

	reg := ctxPkg.GetRegistry(env.ctx)
	if err := reg.Add(row); err != nil {
		t.Fatalf("cache engine: %v", err)
	}

	svc := service.NewImageService(env.ctx)

	_, err := svc.Upload(env.ctx, pngBytes(t, 16, 16), service.UploadOptions{
		FileName:    "big.png",
		ContentType: "image/png",
		EngineID:    row.ID,
	})
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Errorf("upload error = %v, want ErrCapacityExceeded", err)
	}
}

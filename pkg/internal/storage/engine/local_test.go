package engine_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
)

// newTestLocalEngine 在临时目录下构造本地引擎.
func newTestLocalEngine(t *testing.T) engine.Engine {
	t.Helper()

	eng, err := engine.New(&model.StorageEngine{
		Name: "test-local",
		Type: model.EngineTypeLocal,
		Config: model.EngineConfig{
			BasePath: t.TempDir(),
			BaseURL:  "http://localhost:8080/uploads",
		},
	})
	if err != nil {
		t.Fatalf("create local engine: %v", err)
	}

	return eng
}

// TestLocalEngineRoundTrip 测试上传、存在性检查、下载和删除的完整流程.
func TestLocalEngineRoundTrip(t *testing.T) {
	eng := newTestLocalEngine(t)
	ctx := context.Background()
	data := []byte("picvault test payload")

	url, err := eng.Upload(ctx, "uploads/20260129/a.png", data)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if url != "http://localhost:8080/uploads/uploads/20260129/a.png" {
		t.Errorf("unexpected url: %q", url)
	}

	exists, err := eng.Exists(ctx, "uploads/20260129/a.png")
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v, want true, nil", exists, err)
	}

	got, err := eng.Download(ctx, "uploads/20260129/a.png")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Errorf("Download() returned %d bytes, want %d", len(got), len(data))
	}

	if err := eng.Delete(ctx, "uploads/20260129/a.png"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	exists, err = eng.Exists(ctx, "uploads/20260129/a.png")
	if err != nil || exists {
		t.Errorf("Exists() after delete = %v, %v, want false, nil", exists, err)
	}
}

// TestLocalEngineIdempotentOverwrite 测试同键重复上传为幂等覆盖.
func TestLocalEngineIdempotentOverwrite(t *testing.T) {
	eng := newTestLocalEngine(t)
	ctx := context.Background()

	if _, err := eng.Upload(ctx, "a.txt", []byte("v1")); err != nil {
		t.Fatalf("first Upload() error: %v", err)
	}

	if _, err := eng.Upload(ctx, "a.txt", []byte("v2")); err != nil {
		t.Fatalf("second Upload() error: %v", err)
	}

	got, err := eng.Download(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	if string(got) != "v2" {
		t.Errorf("Download() = %q, want %q", got, "v2")
	}
}

// TestLocalEngineDeleteMissing 测试删除不存在的键不报错.
func TestLocalEngineDeleteMissing(t *testing.T) {
	eng := newTestLocalEngine(t)

	if err := eng.Delete(context.Background(), "nope.png"); err != nil {
		t.Errorf("Delete() on missing key error: %v", err)
	}
}

// TestLocalEngineRejectsTraversal 测试越出根目录的键被拒绝.
func TestLocalEngineRejectsTraversal(t *testing.T) {
	eng := newTestLocalEngine(t)

	if _, err := eng.Upload(context.Background(), "../escape.txt", []byte("x")); err == nil {
		t.Error("Upload() with traversal key should fail")
	}
}

// TestLocalEngineUsage 测试本地用量统计.
func TestLocalEngineUsage(t *testing.T) {
	eng := newTestLocalEngine(t)
	ctx := context.Background()

	if _, err := eng.Upload(ctx, "a.bin", make([]byte, 100)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if _, err := eng.Upload(ctx, "sub/b.bin", make([]byte, 50)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	usage, err := eng.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage() error: %v", err)
	}

	if usage.UsedBytes != 150 || usage.FileCount != 2 || !usage.Available {
		t.Errorf("Usage() = %+v, want {150 2 true}", usage)
	}
}

// TestLocalEngineTest 测试可写探测.
func TestLocalEngineTest(t *testing.T) {
	eng := newTestLocalEngine(t)

	result := eng.Test(context.Background())
	if !result.Success {
		t.Errorf("Test() = %+v, want success", result)
	}
}

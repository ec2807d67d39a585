package pathrule_test

import (
	"testing"
	"time"

	"github.com/yeisme/picvault/pkg/pathrule"
)

// TestRender 测试标准模板渲染：日期、文件名和小写扩展名.
func TestRender(t *testing.T) {
	at := time.Date(2026, 1, 29, 10, 30, 0, 0, time.UTC)

	got := pathrule.Render("uploads/{date}/{filename}.{ext}", "photo.JPG", at)
	want := "uploads/20260129/photo.jpg"

	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

// TestRenderDateParts 测试 {year}/{month}/{day} 占位符.
func TestRenderDateParts(t *testing.T) {
	at := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	got := pathrule.Render("{year}/{month}/{day}/{filename}.{ext}", "a.png", at)
	want := "2026/03/07/a.png"

	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

// TestRenderWithHash 测试 {md5} 占位符渲染.
func TestRenderWithHash(t *testing.T) {
	at := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	got := pathrule.RenderWithHash("uploads/{date}/{md5}.{ext}", "photo.JPG", "d41d8cd98f00b204e9800998ecf8427e", at)
	want := "uploads/20260129/d41d8cd98f00b204e9800998ecf8427e.jpg"

	if got != want {
		t.Errorf("RenderWithHash() = %q, want %q", got, want)
	}
}

// TestRenderUnknownPlaceholder 测试未识别的占位符原样保留.
func TestRenderUnknownPlaceholder(t *testing.T) {
	at := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	got := pathrule.Render("{bucket}/{date}/{filename}.{ext}", "a.gif", at)
	want := "{bucket}/20260129/a.gif"

	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

// TestRenderNoExtension 测试没有扩展名的文件.
func TestRenderNoExtension(t *testing.T) {
	at := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	got := pathrule.Render("uploads/{date}/{filename}.{ext}", "README", at)
	want := "uploads/20260129/README."

	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

// TestRenderEmptyRule 测试空规则回退到默认规则.
func TestRenderEmptyRule(t *testing.T) {
	at := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	got := pathrule.Render("", "photo.jpg", at)
	want := "uploads/20260129/photo.jpg"

	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

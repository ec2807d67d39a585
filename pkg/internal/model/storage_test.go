package model_test

import (
	"testing"

	"github.com/yeisme/picvault/pkg/internal/model"
)

// TestEngineConfigCDNDomainAlias 测试历史配置别名 cdn_domain 归一到 custom_domain.
func TestEngineConfigCDNDomainAlias(t *testing.T) {
	var cfg model.EngineConfig
	if err := cfg.UnmarshalJSON([]byte(`{"cdn_domain":"https://cdn.example.com","bucket_name":"b"}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if cfg.CustomDomain != "https://cdn.example.com" {
		t.Errorf("CustomDomain = %q, want alias value", cfg.CustomDomain)
	}

	// 两者同时存在时 custom_domain 优先
	var both model.EngineConfig
	if err := both.UnmarshalJSON([]byte(`{"custom_domain":"https://img.example.com","cdn_domain":"https://cdn.example.com"}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if both.CustomDomain != "https://img.example.com" {
		t.Errorf("CustomDomain = %q, want custom_domain to win", both.CustomDomain)
	}
}

// TestEngineConfigScanValue 测试配置包经数据库列往返后语义不变.
func TestEngineConfigScanValue(t *testing.T) {
	ssl := false
	in := model.EngineConfig{
		Endpoint:        "https://ep",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
		Bucket:          "b",
		BasePath:        "imgs",
		UseSSL:          &ssl,
	}

	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out model.EngineConfig
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if out.Endpoint != in.Endpoint || out.Bucket != in.Bucket || out.Secure() {
		t.Errorf("round trip lost fields: %+v", out)
	}
}

// TestEngineConfigSecureDefault 测试 use_ssl 缺省为 true.
func TestEngineConfigSecureDefault(t *testing.T) {
	var cfg model.EngineConfig
	if !cfg.Secure() {
		t.Error("Secure() should default to true")
	}
}

package engine_test

import (
	"testing"

	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
)

// TestNewUnknownType 测试未知引擎类型返回配置错误.
func TestNewUnknownType(t *testing.T) {
	_, err := engine.New(&model.StorageEngine{Name: "x", Type: "ftp"})
	if err == nil {
		t.Fatal("New() with unknown type should fail")
	}

	if !engine.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T: %v", err, err)
	}
}

// TestNewS3MissingFields 测试S3引擎缺少必填字段时的构造错误.
func TestNewS3MissingFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  model.EngineConfig
	}{
		{"missing endpoint", model.EngineConfig{AccessKeyID: "ak", SecretAccessKey: "sk", Bucket: "b"}},
		{"missing credentials", model.EngineConfig{Endpoint: "https://ep", Bucket: "b"}},
		{"missing bucket", model.EngineConfig{Endpoint: "https://ep", AccessKeyID: "ak", SecretAccessKey: "sk"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := engine.New(&model.StorageEngine{Name: "s3", Type: model.EngineTypeS3, Config: c.cfg})
			if err == nil {
				t.Fatal("New() should fail")
			}

			if !engine.IsConfigError(err) {
				t.Errorf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

// TestNewOSSMissingFields 测试OSS引擎缺少必填字段时的构造错误.
func TestNewOSSMissingFields(t *testing.T) {
	_, err := engine.New(&model.StorageEngine{
		Name:   "oss",
		Type:   model.EngineTypeOSS,
		Config: model.EngineConfig{AccessKeyID: "ak", SecretAccessKey: "sk"},
	})
	if err == nil {
		t.Fatal("New() without bucket should fail")
	}

	if !engine.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T: %v", err, err)
	}
}

// TestNewS3Valid 测试完整S3配置可以构造（构造阶段不发起网络请求）.
func TestNewS3Valid(t *testing.T) {
	eng, err := engine.New(&model.StorageEngine{
		Name: "minio",
		Type: model.EngineTypeS3,
		Config: model.EngineConfig{
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "ak",
			SecretAccessKey: "sk",
			Bucket:          "pics",
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if eng.Type() != model.EngineTypeS3 || eng.Name() != "minio" {
		t.Errorf("unexpected engine identity: %s/%s", eng.Type(), eng.Name())
	}
}

// TestSupportedTypes 测试支持的引擎类型集合.
func TestSupportedTypes(t *testing.T) {
	types := engine.SupportedTypes()

	seen := make(map[model.EngineType]bool, len(types))
	for _, tp := range types {
		seen[tp] = true
	}

	for _, want := range []model.EngineType{model.EngineTypeLocal, model.EngineTypeS3, model.EngineTypeOSS} {
		if !seen[want] {
			t.Errorf("SupportedTypes() missing %s", want)
		}
	}
}

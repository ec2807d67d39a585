package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"

	"github.com/yeisme/picvault/pkg/internal/model"
)

// ossEngine 阿里云OSS原生存储引擎.
type ossEngine struct {
	name   string
	cfg    model.EngineConfig
	client *oss.Client
}

// newOSSEngine 构造OSS引擎. region 为空时默认 cn-hangzhou，endpoint 可选.
func newOSSEngine(name string, cfg model.EngineConfig) (Engine, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, newConfigError(model.EngineTypeOSS, "access_key_id and secret_access_key are required")
	}

	if cfg.Bucket == "" {
		return nil, newConfigError(model.EngineTypeOSS, "bucket_name is required")
	}

	if cfg.Region == "" {
		cfg.Region = "cn-hangzhou"
	}

	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey)).
		WithRegion(cfg.Region)

	if cfg.Endpoint != "" {
		ossCfg = ossCfg.WithEndpoint(cfg.Endpoint)
	}

	return &ossEngine{name: name, cfg: cfg, client: oss.NewClient(ossCfg)}, nil
}

// fullKey 拼接 base_path 前缀.
func (e *ossEngine) fullKey(key string) string {
	return JoinBasePath(e.cfg.BasePath, key)
}

func (e *ossEngine) Upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := e.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(e.cfg.Bucket),
		Key:    oss.Ptr(e.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}

	return e.URL(key), nil
}

func (e *ossEngine) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := e.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(e.cfg.Bucket),
		Key:    oss.Ptr(e.fullKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("oss get %s: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("oss read %s: %w", key, err)
	}

	return data, nil
}

func (e *ossEngine) Delete(ctx context.Context, key string) error {
	_, err := e.client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(e.cfg.Bucket),
		Key:    oss.Ptr(e.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("oss delete %s: %w", key, err)
	}

	return nil
}

func (e *ossEngine) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := e.client.IsObjectExist(ctx, e.cfg.Bucket, e.fullKey(key))
	if err != nil {
		return false, fmt.Errorf("oss head %s: %w", key, err)
	}

	return exists, nil
}

func (e *ossEngine) URL(key string) string {
	return ResolveURL(model.EngineTypeOSS, &e.cfg, key)
}

// Test 通过 IsBucketExist 探测连接与权限.
func (e *ossEngine) Test(ctx context.Context) TestResult {
	return measure(func() error {
		exists, err := e.client.IsBucketExist(ctx, e.cfg.Bucket)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("bucket %s not found", e.cfg.Bucket)
		}

		return nil
	})
}

// Usage 分页遍历 base_path 前缀下的对象统计用量.
func (e *ossEngine) Usage(ctx context.Context) (Usage, error) {
	req := &oss.ListObjectsV2Request{Bucket: oss.Ptr(e.cfg.Bucket)}
	if e.cfg.BasePath != "" {
		req.Prefix = oss.Ptr(JoinBasePath(e.cfg.BasePath, ""))
	}

	var usage Usage

	paginator := e.client.NewListObjectsV2Paginator(req)
	for paginator.HasNext() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Usage{}, fmt.Errorf("oss list objects: %w", err)
		}

		for _, obj := range page.Contents {
			usage.UsedBytes += obj.Size
			usage.FileCount++
		}
	}

	usage.Available = true

	return usage, nil
}

func (e *ossEngine) Type() model.EngineType {
	return model.EngineTypeOSS
}

func (e *ossEngine) Name() string {
	return e.name
}

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/picvault/pkg/configs"
	"github.com/yeisme/picvault/pkg/internal/model"
)

// s3Engine S3兼容存储引擎，基于 MinIO 客户端，覆盖 AWS S3、MinIO、Cloudflare R2 等.
type s3Engine struct {
	name   string
	cfg    model.EngineConfig
	client *minio.Client
}

// newS3Engine 构造S3引擎. 必填字段缺失返回 *ConfigError；客户端本身懒连接，
// 构造阶段不发起网络请求.
func newS3Engine(name string, cfg model.EngineConfig) (Engine, error) {
	if cfg.Endpoint == "" {
		return nil, newConfigError(model.EngineTypeS3, "endpoint_url is required")
	}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, newConfigError(model.EngineTypeS3, "access_key_id and secret_access_key are required")
	}

	if cfg.Bucket == "" {
		return nil, newConfigError(model.EngineTypeS3, "bucket_name is required")
	}

	endpoint := cfg.Endpoint
	secure := cfg.Secure()
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "http" {
			secure = false
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, newConfigError(model.EngineTypeS3, "create minio client: %v", err)
	}

	cli.SetAppInfo("picvault", configs.AppVersion)

	return &s3Engine{name: name, cfg: cfg, client: cli}, nil
}

// fullKey 拼接 base_path 前缀.
func (e *s3Engine) fullKey(key string) string {
	return JoinBasePath(e.cfg.BasePath, key)
}

func (e *s3Engine) Upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := e.client.PutObject(ctx, e.cfg.Bucket, e.fullKey(key),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	return e.URL(key), nil
}

func (e *s3Engine) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := e.client.GetObject(ctx, e.cfg.Bucket, e.fullKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}

	return data, nil
}

func (e *s3Engine) Delete(ctx context.Context, key string) error {
	if err := e.client.RemoveObject(ctx, e.cfg.Bucket, e.fullKey(key), minio.RemoveObjectOptions{}); err != nil {
		// 对象不存在也视为删除成功
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}

		return fmt.Errorf("s3 remove %s: %w", key, err)
	}

	return nil
}

func (e *s3Engine) Exists(ctx context.Context, key string) (bool, error) {
	_, err := e.client.StatObject(ctx, e.cfg.Bucket, e.fullKey(key), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}

		return false, fmt.Errorf("s3 stat %s: %w", key, err)
	}

	return true, nil
}

func (e *s3Engine) URL(key string) string {
	return ResolveURL(model.EngineTypeS3, &e.cfg, key)
}

// Test 通过 BucketExists 探测连接与权限.
func (e *s3Engine) Test(ctx context.Context) TestResult {
	return measure(func() error {
		exists, err := e.client.BucketExists(ctx, e.cfg.Bucket)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("bucket %s not found", e.cfg.Bucket)
		}

		return nil
	})
}

// Usage 遍历 base_path 前缀下的对象统计用量.
func (e *s3Engine) Usage(ctx context.Context) (Usage, error) {
	prefix := ""
	if e.cfg.BasePath != "" {
		prefix = JoinBasePath(e.cfg.BasePath, "")
	}

	var usage Usage

	for obj := range e.client.ListObjects(ctx, e.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return Usage{}, fmt.Errorf("s3 list objects: %w", obj.Err)
		}

		usage.UsedBytes += obj.Size
		usage.FileCount++
	}

	usage.Available = true

	return usage, nil
}

func (e *s3Engine) Type() model.EngineType {
	return model.EngineTypeS3
}

func (e *s3Engine) Name() string {
	return e.name
}

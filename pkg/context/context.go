// Package context 拓展上下文功能，将日志、服务等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/yeisme/picvault/pkg/internal/storage"
	dbc "github.com/yeisme/picvault/pkg/internal/storage/db"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetRegistry 从 context 中获取存储引擎缓存.
func GetRegistry(ctx context.Context) *registry.Registry {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetRegistry()
	}

	return nil
}

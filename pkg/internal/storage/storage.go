// Package storage 聚合持久层资源：数据库连接与存储引擎缓存.
//
// Example:
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//
//	db := mgr.GetDBClient()
//	reg := mgr.GetRegistry()
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/yeisme/picvault/pkg/internal/model"
	dbc "github.com/yeisme/picvault/pkg/internal/storage/db"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
	nlog "github.com/yeisme/picvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB       *dbc.Client
	Registry *registry.Registry
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化存储层：建立数据库连接、迁移表结构并预热引擎缓存.
// 重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e

			return
		}

		if e := dbi.AutoMigrate(&model.StorageEngine{}, &model.Image{}); e != nil {
			err = fmt.Errorf("auto migrate: %w", e)

			return
		}

		reg := registry.New()
		if e := reg.Initialize(ctx, dbi.GetDB()); e != nil {
			err = e

			return
		}

		mgr = &Manager{DB: dbi, Registry: reg}

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetRegistry 获取存储引擎缓存.
func (m *Manager) GetRegistry() *registry.Registry {
	return m.Registry
}

// Close 释放存储资源.
func (m *Manager) Close() error {
	m.Registry.Clear()

	sqlDB, err := m.DB.GetDB().DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/picvault/pkg/context"
	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/db"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
	"github.com/yeisme/picvault/pkg/internal/types"
	nlog "github.com/yeisme/picvault/pkg/log"
)

// ErrEngineNotFound 存储引擎不存在.
var ErrEngineNotFound = errors.New("storage engine not found")

// ErrEngineInUse 存储引擎仍被未删除图片引用.
var ErrEngineInUse = errors.New("storage engine still referenced by images")

// ErrEngineIsDefault 默认引擎不允许该操作.
var ErrEngineIsDefault = errors.New("operation not allowed on the default engine")

// ErrEngineInactive 非激活引擎不允许该操作.
var ErrEngineInactive = errors.New("storage engine is not active")

// StorageService 负责存储引擎配置的增删改查，并保持数据库与引擎缓存一致.
//
// 写路径的顺序约定：先落库，成功后同步缓存；失配时缓存以数据库为准，
// 可通过 RefreshCache 全量重建.
type StorageService struct {
	dbClient *db.Client
	registry *registry.Registry
}

// NewStorageService 从 context 获取依赖实例.
func NewStorageService(c context.Context) *StorageService {
	dbc := ctxPkg.GetDBClient(c)
	reg := ctxPkg.GetRegistry(c)

	if dbc == nil || dbc.DB == nil || reg == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &StorageService{dbClient: dbc, registry: reg}
}

// Create 创建存储引擎. 配置在入库前先构造一次以验证；系统中第一个
// 引擎自动成为默认引擎.
func (s *StorageService) Create(ctx context.Context, req *types.CreateStorageEngineRequest) (*types.StorageEngineInfo, error) {
	row := model.StorageEngine{
		Name:        req.Name,
		Type:        model.EngineType(req.Type),
		Config:      req.Config,
		IsActive:    true,
		IsDefault:   req.IsDefault,
		PathRule:    req.PathRule,
		MaxCapacity: req.MaxCapacity,
	}
	if req.IsActive != nil {
		row.IsActive = *req.IsActive
	}

	// 配置错误在这里暴露，而不是等到第一次上传
	if _, err := engine.New(&row); err != nil {
		return nil, err
	}

	gdb := s.dbClient.WithContext(ctx)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.StorageEngine{}).Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			row.IsDefault = true
			row.IsActive = true
		}

		if row.IsDefault {
			if !row.IsActive {
				return ErrEngineInactive
			}

			if err := tx.Model(&model.StorageEngine{}).
				Where("is_default = ?", true).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}

		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create storage engine: %w", err)
	}

	// Add 在同一临界区内完成默认标记切换，旧默认引擎的缓存快照一并降级
	if err := s.registry.Add(&row); err != nil {
		nlog.Logger().Warn().Err(err).Uint("engine_id", row.ID).
			Msg("引擎已入库但缓存同步失败")
	}

	nlog.Logger().Info().Uint("engine_id", row.ID).Str("name", row.Name).
		Str("type", string(row.Type)).Msg("存储引擎已创建")

	info := types.NewStorageEngineInfo(&row)

	return &info, nil
}

// Update 更新存储引擎配置，nil 字段保持原值. 默认引擎不允许被停用.
func (s *StorageService) Update(ctx context.Context, id uint, req *types.UpdateStorageEngineRequest) (*types.StorageEngineInfo, error) {
	gdb := s.dbClient.WithContext(ctx)

	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		row.Name = *req.Name
	}

	if req.Config != nil {
		row.Config = *req.Config
	}

	if req.IsActive != nil {
		if row.IsDefault && !*req.IsActive {
			return nil, ErrEngineIsDefault
		}

		row.IsActive = *req.IsActive
	}

	if req.PathRule != nil {
		row.PathRule = *req.PathRule
	}

	if req.MaxCapacity != nil {
		if *req.MaxCapacity > 0 && *req.MaxCapacity < row.UsedCapacity {
			return nil, fmt.Errorf("%w: capacity %d below current usage %d",
				ErrCapacityExceeded, *req.MaxCapacity, row.UsedCapacity)
		}

		row.MaxCapacity = req.MaxCapacity
	}

	if row.IsActive {
		if _, err := engine.New(row); err != nil {
			return nil, err
		}
	}

	if err := gdb.Save(row).Error; err != nil {
		return nil, fmt.Errorf("update storage engine %d: %w", id, err)
	}

	if err := s.registry.Update(row); err != nil {
		nlog.Logger().Warn().Err(err).Uint("engine_id", id).
			Msg("引擎已更新但缓存同步失败")
	}

	info := types.NewStorageEngineInfo(row)

	return &info, nil
}

// Delete 删除存储引擎. 默认引擎和仍被未删除图片引用的引擎拒绝删除.
func (s *StorageService) Delete(ctx context.Context, id uint) error {
	gdb := s.dbClient.WithContext(ctx)

	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if row.IsDefault {
		return ErrEngineIsDefault
	}

	var refs int64
	if err := gdb.Model(&model.Image{}).
		Where("storage_engine_id = ? AND is_deleted = ?", id, false).
		Count(&refs).Error; err != nil {
		return fmt.Errorf("count engine references: %w", err)
	}

	if refs > 0 {
		return fmt.Errorf("%w: %d images", ErrEngineInUse, refs)
	}

	// 先下线缓存再删行，避免删除间隙里继续路由到该引擎
	s.registry.Remove(id)

	if err := gdb.Delete(row).Error; err != nil {
		return fmt.Errorf("delete storage engine %d: %w", id, err)
	}

	// 软删除的历史图片行随引擎一并清掉，避免悬挂引用
	if err := gdb.Where("storage_engine_id = ? AND is_deleted = ?", id, true).
		Delete(&model.Image{}).Error; err != nil {
		nlog.Logger().Warn().Err(err).Uint("engine_id", id).
			Msg("清理软删除图片行失败")
	}

	nlog.Logger().Info().Uint("engine_id", id).Msg("存储引擎已删除")

	return nil
}

// SetDefault 切换默认引擎，目标必须处于激活状态.
func (s *StorageService) SetDefault(ctx context.Context, id uint) error {
	gdb := s.dbClient.WithContext(ctx)

	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if !row.IsActive {
		return ErrEngineInactive
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.StorageEngine{}).
			Where("is_default = ?", true).
			UpdateColumn("is_default", false).Error; err != nil {
			return err
		}

		return tx.Model(&model.StorageEngine{}).
			Where("id = ?", id).
			UpdateColumn("is_default", true).Error
	})
	if err != nil {
		return fmt.Errorf("set default engine %d: %w", id, err)
	}

	s.registry.SetDefault(id)

	return nil
}

// Get 取单个引擎信息.
func (s *StorageService) Get(ctx context.Context, id uint) (*types.StorageEngineInfo, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	info := types.NewStorageEngineInfo(row)

	return &info, nil
}

// List 列出全部引擎.
func (s *StorageService) List(ctx context.Context) ([]types.StorageEngineInfo, error) {
	var rows []model.StorageEngine
	if err := s.dbClient.WithContext(ctx).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list storage engines: %w", err)
	}

	out := make([]types.StorageEngineInfo, 0, len(rows))
	for i := range rows {
		out = append(out, types.NewStorageEngineInfo(&rows[i]))
	}

	return out, nil
}

// TestConnection 用数据库中的配置新建引擎实例并探测连通性.
// 故意不用缓存实例，以便验证刚写入但尚未激活的配置.
func (s *StorageService) TestConnection(ctx context.Context, id uint) (*types.TestStorageEngineResponse, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(row)
	if err != nil {
		return &types.TestStorageEngineResponse{
			EngineID: id,
			Result:   engine.TestResult{Success: false, Message: err.Error()},
		}, nil
	}

	return &types.TestStorageEngineResponse{
		EngineID: id,
		Result:   eng.Test(ctx),
	}, nil
}

// GetUsage 查询引擎用量.
func (s *StorageService) GetUsage(ctx context.Context, id uint) (*types.StorageUsageResponse, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	eng, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: engine %d", ErrEngineInactive, id)
	}

	usage, err := eng.Usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("query engine %d usage: %w", id, err)
	}

	resp := &types.StorageUsageResponse{
		EngineID:    id,
		Usage:       usage,
		MaxCapacity: row.MaxCapacity,
	}

	if row.MaxCapacity != nil && *row.MaxCapacity > 0 {
		pct := float64(usage.UsedBytes) / float64(*row.MaxCapacity) * 100
		resp.UsedPercent = &pct
	}

	return resp, nil
}

// CacheInfo 返回引擎缓存状态.
func (s *StorageService) CacheInfo() *types.StorageCacheInfoResponse {
	return &types.StorageCacheInfoResponse{Cache: s.registry.Stats()}
}

// RefreshCache 从数据库全量重建引擎缓存.
func (s *StorageService) RefreshCache(ctx context.Context) error {
	return s.registry.Initialize(ctx, s.dbClient.GetDB())
}

// load 按ID加载引擎行.
func (s *StorageService) load(ctx context.Context, id uint) (*model.StorageEngine, error) {
	var row model.StorageEngine
	err := s.dbClient.WithContext(ctx).First(&row, id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEngineNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load storage engine %d: %w", id, err)
	}

	return &row, nil
}

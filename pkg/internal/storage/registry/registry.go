// Package registry 维护激活存储引擎的进程内缓存.
//
// 缓存只镜像 storage_engines 表中 is_active=true 的行，写路径永远
// 先落库再同步缓存；缓存未命中不回源，由服务层负责在配置变更时调用
// 对应的同步方法.
package registry

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	nlog "github.com/yeisme/picvault/pkg/log"
	"github.com/yeisme/picvault/pkg/metrics"
)

// BuildFunc 由引擎配置构造引擎实例. 默认为 engine.New，测试可注入替身.
type BuildFunc func(*model.StorageEngine) (engine.Engine, error)

// entry 缓存条目：配置快照与已构造的引擎实例成对保存.
type entry struct {
	cfg *model.StorageEngine
	eng engine.Engine
}

// Registry 激活存储引擎缓存.
type Registry struct {
	mu        sync.RWMutex
	entries   map[uint]*entry
	defaultID uint
	build     BuildFunc
}

// New 创建空的引擎缓存.
func New() *Registry {
	return &Registry{
		entries: make(map[uint]*entry),
		build:   engine.New,
	}
}

// NewWithBuilder 创建使用指定构造函数的引擎缓存，供测试注入.
func NewWithBuilder(build BuildFunc) *Registry {
	r := New()
	r.build = build

	return r
}

// Initialize 从数据库加载全部激活引擎并重建缓存.
// 单个引擎构造失败只记录日志并跳过，不影响其余引擎.
func (r *Registry) Initialize(ctx context.Context, db *gorm.DB) error {
	var rows []model.StorageEngine
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("load active storage engines: %w", err)
	}

	// 构造放在锁外，失败的引擎不进缓存
	entries := make(map[uint]*entry, len(rows))

	var defaultID uint

	for i := range rows {
		row := rows[i]

		eng, err := r.build(&row)
		if err != nil {
			nlog.Logger().Warn().Err(err).
				Uint("engine_id", row.ID).
				Str("engine_name", row.Name).
				Msg("跳过无法构造的存储引擎")

			continue
		}

		entries[row.ID] = &entry{cfg: &row, eng: eng}
		if row.IsDefault {
			defaultID = row.ID
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.defaultID = defaultID
	r.mu.Unlock()

	metrics.CachedEngines.Set(float64(len(entries)))
	nlog.Logger().Info().Int("count", len(entries)).Uint("default_id", defaultID).
		Msg("存储引擎缓存已初始化")

	return nil
}

// Add 将单个引擎配置加入缓存. 非激活配置直接忽略.
func (r *Registry) Add(cfg *model.StorageEngine) error {
	if !cfg.IsActive {
		return nil
	}

	eng, err := r.build(cfg)
	if err != nil {
		return fmt.Errorf("build engine %q: %w", cfg.Name, err)
	}

	snapshot := *cfg

	r.mu.Lock()
	r.entries[cfg.ID] = &entry{cfg: &snapshot, eng: eng}
	if cfg.IsDefault {
		r.promoteLocked(cfg.ID)
	}
	count := len(r.entries)
	r.mu.Unlock()

	metrics.CachedEngines.Set(float64(count))

	return nil
}

// Update 用新配置整体替换缓存条目.
// 配置被停用时等价于 Remove；构造失败时保留旧条目并返回错误.
func (r *Registry) Update(cfg *model.StorageEngine) error {
	if !cfg.IsActive {
		r.Remove(cfg.ID)

		return nil
	}

	eng, err := r.build(cfg)
	if err != nil {
		return fmt.Errorf("build engine %q: %w", cfg.Name, err)
	}

	snapshot := *cfg

	r.mu.Lock()
	r.entries[cfg.ID] = &entry{cfg: &snapshot, eng: eng}

	switch {
	case cfg.IsDefault:
		r.promoteLocked(cfg.ID)
	case r.defaultID == cfg.ID:
		// 该引擎不再是默认引擎
		r.defaultID = 0
	}

	count := len(r.entries)
	r.mu.Unlock()

	metrics.CachedEngines.Set(float64(count))

	return nil
}

// Remove 从缓存移除引擎. 不存在时为空操作.
func (r *Registry) Remove(id uint) {
	r.mu.Lock()
	delete(r.entries, id)

	if r.defaultID == id {
		r.defaultID = 0
	}

	count := len(r.entries)
	r.mu.Unlock()

	metrics.CachedEngines.Set(float64(count))
}

// SetDefault 将缓存内的默认引擎切换为指定引擎.
// 目标不在缓存中（已被并发移除或未激活）时静默跳过，由调用方保证
// 激活先于本调用；数据库中的默认标记始终是权威状态.
func (r *Registry) SetDefault(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		nlog.Logger().Debug().Uint("engine_id", id).
			Msg("默认引擎切换目标不在缓存中，跳过")

		return
	}

	r.promoteLocked(id)
}

// promoteLocked 将指定引擎设为默认并降级其余条目的默认标记，
// 保证任意时刻缓存内最多一个条目自报默认. 调用方必须持有写锁.
func (r *Registry) promoteLocked(id uint) {
	for eid, ent := range r.entries {
		ent.cfg.IsDefault = eid == id
	}

	r.defaultID = id
}

// Get 按引擎ID取已构造的引擎实例.
func (r *Registry) Get(id uint) (engine.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[id]
	if !ok {
		return nil, false
	}

	return ent.eng, true
}

// GetDefault 取默认引擎实例.
func (r *Registry) GetDefault() (engine.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[r.defaultID]
	if !ok {
		return nil, false
	}

	return ent.eng, true
}

// GetConfig 按引擎ID取配置快照副本.
func (r *Registry) GetConfig(id uint) (*model.StorageEngine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[id]
	if !ok {
		return nil, false
	}

	cfg := *ent.cfg

	return &cfg, true
}

// GetDefaultConfig 取默认引擎的配置快照副本.
func (r *Registry) GetDefaultConfig() (*model.StorageEngine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[r.defaultID]
	if !ok {
		return nil, false
	}

	cfg := *ent.cfg

	return &cfg, true
}

// Lookup 在同一临界区内取配置快照副本与引擎实例.
// 分开调用 GetConfig 和 Get 的话，两次读之间条目可能被并发移除.
func (r *Registry) Lookup(id uint) (*model.StorageEngine, engine.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(id)
}

// LookupDefault 取默认引擎的配置快照副本与引擎实例.
func (r *Registry) LookupDefault() (*model.StorageEngine, engine.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(r.defaultID)
}

func (r *Registry) lookupLocked(id uint) (*model.StorageEngine, engine.Engine, bool) {
	ent, ok := r.entries[id]
	if !ok {
		return nil, nil, false
	}

	cfg := *ent.cfg

	return &cfg, ent.eng, true
}

// EngineEntry 缓存条目视图：引擎ID、配置快照副本与引擎实例.
type EngineEntry struct {
	ID     uint
	Config *model.StorageEngine
	Engine engine.Engine
}

// GetAll 返回全部缓存条目.
func (r *Registry) GetAll() []EngineEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EngineEntry, 0, len(r.entries))
	for id, ent := range r.entries {
		cfg := *ent.cfg
		out = append(out, EngineEntry{ID: id, Config: &cfg, Engine: ent.eng})
	}

	return out
}

// Exists 判断引擎是否在缓存中.
func (r *Registry) Exists(id uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]

	return ok
}

// Info 缓存状态快照，供诊断接口查询.
type Info struct {
	Count     int                       `json:"count"`
	DefaultID uint                      `json:"default_id"`
	EngineIDs []uint                    `json:"engine_ids"`
	Types     map[uint]model.EngineType `json:"engine_types"`
}

// Stats 返回缓存状态快照.
func (r *Registry) Stats() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.entries))
	types := make(map[uint]model.EngineType, len(r.entries))

	for id, ent := range r.entries {
		ids = append(ids, id)
		types[id] = ent.cfg.Type
	}

	return Info{
		Count:     len(r.entries),
		DefaultID: r.defaultID,
		EngineIDs: ids,
		Types:     types,
	}
}

// Clear 清空缓存. 服务关闭时调用.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = make(map[uint]*entry)
	r.defaultID = 0
	r.mu.Unlock()

	metrics.CachedEngines.Set(0)
}

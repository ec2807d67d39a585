package engine

import (
	"github.com/yeisme/picvault/pkg/internal/model"
)

// builders 引擎类型到构造函数的映射.
var builders = map[model.EngineType]func(name string, cfg model.EngineConfig) (Engine, error){
	model.EngineTypeLocal: newLocalEngine,
	model.EngineTypeS3:    newS3Engine,
	model.EngineTypeOSS:   newOSSEngine,
}

// New 根据存储引擎配置构造对应的引擎实例.
// 未知类型或配置包非法返回 *ConfigError.
func New(cfg *model.StorageEngine) (Engine, error) {
	build, ok := builders[cfg.Type]
	if !ok {
		return nil, newConfigError(cfg.Type, "unsupported engine type")
	}

	return build(cfg.Name, cfg.Config)
}

// SupportedTypes 返回支持的引擎类型列表.
func SupportedTypes() []model.EngineType {
	types := make([]model.EngineType, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}

	return types
}

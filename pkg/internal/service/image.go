package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"time"

	// 注册常见图片格式的解码器，用于提取宽高
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gorm.io/gorm"

	"github.com/yeisme/picvault/pkg/configs"
	ctxPkg "github.com/yeisme/picvault/pkg/context"
	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/db"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
	"github.com/yeisme/picvault/pkg/internal/types"
	nlog "github.com/yeisme/picvault/pkg/log"
	"github.com/yeisme/picvault/pkg/metrics"
	"github.com/yeisme/picvault/pkg/pathrule"
)

// ErrImageNotFound 图片不存在或已删除.
var ErrImageNotFound = errors.New("image not found")

// ErrEngineUnavailable 没有可用的存储引擎.
var ErrEngineUnavailable = errors.New("no usable storage engine")

// ErrCapacityExceeded 目标引擎容量不足.
var ErrCapacityExceeded = errors.New("storage engine capacity exceeded")

// ValidationError 上传内容不符合限制（大小、类型）.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError 判断是否为上传校验错误.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}

// ImageService 负责图片入库流水线：哈希、去重、引擎路由、落盘与元数据持久化.
type ImageService struct {
	dbClient *db.Client
	registry *registry.Registry
}

// NewImageService 从 context 获取依赖实例.
func NewImageService(c context.Context) *ImageService {
	dbc := ctxPkg.GetDBClient(c)
	reg := ctxPkg.GetRegistry(c)

	// 为了安全起见，应该直接 panic 而不是返回 nil，依赖此服务就不需要再检查
	if dbc == nil || dbc.DB == nil || reg == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &ImageService{dbClient: dbc, registry: reg}
}

// UploadOptions 上传选项.
type UploadOptions struct {
	FileName string
	// ContentType 客户端声明的 MIME 类型
	ContentType string
	// EngineID 为 0 时使用默认引擎
	EngineID uint
	UploadIP string
}

// Upload 执行一次图片入库.
//
// 内容先按 md5/sha256 查重：任一哈希命中未删除行即秒传，不产生新的存储
// 写入. 未命中时路由到目标引擎写入对象，再持久化元数据；并发上传相同
// 内容时依靠 (md5, sha256) 唯一索引收敛为单行.
func (s *ImageService) Upload(ctx context.Context, data []byte, opts UploadOptions) (*types.UploadImageResponse, error) {
	if err := s.validate(data, opts); err != nil {
		return nil, err
	}

	md5sum := md5.Sum(data)
	sha256sum := sha256.Sum256(data)
	md5hex := hex.EncodeToString(md5sum[:])
	sha256hex := hex.EncodeToString(sha256sum[:])

	gdb := s.dbClient.WithContext(ctx)

	// 秒传：任一哈希命中未删除行
	var existing model.Image
	err := gdb.Where("is_deleted = ? AND (md5 = ? OR sha256 = ?)", false, md5hex, sha256hex).
		First(&existing).Error

	switch {
	case err == nil:
		metrics.DedupHitCounter.Inc()
		nlog.Logger().Debug().Uint("image_id", existing.ID).Msg("上传命中内容去重")

		return uploadResponse(&existing, true), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	engineCfg, eng, err := s.resolveEngine(opts.EngineID)
	if err != nil {
		return nil, err
	}

	if err := s.checkCapacity(ctx, engineCfg, int64(len(data))); err != nil {
		return nil, err
	}

	rule := engineCfg.PathRule
	if rule == "" {
		rule = configs.GetConfig().Upload.PathRule
	}

	key := pathrule.RenderWithHash(rule, opts.FileName, md5hex, time.Now())

	url, err := eng.Upload(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("upload to engine %q: %w", eng.Name(), err)
	}

	width, height := decodeDimensions(data)

	img := model.Image{
		OriginalFilename: opts.FileName,
		MD5:              md5hex,
		SHA256:           sha256hex,
		StorageKey:       key,
		StorageEngineID:  engineCfg.ID,
		FileSize:         int64(len(data)),
		FileType:         opts.ContentType,
		Width:            width,
		Height:           height,
		UploadIP:         opts.UploadIP,
		OriginalURL:      url,
	}

	if err := gdb.Create(&img).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发上传相同内容：收敛到已有行，必要时复活软删除行
			return s.reconcileDuplicate(ctx, md5hex, sha256hex)
		}

		// 对象已写入，元数据失败后成为孤儿，留日志供巡检
		nlog.Logger().Error().Err(err).Str("key", key).Str("engine", eng.Name()).
			Msg("元数据持久化失败，存储对象成为孤儿")

		return nil, fmt.Errorf("persist image metadata: %w", err)
	}

	if err := gdb.Model(&model.StorageEngine{}).
		Where("id = ?", engineCfg.ID).
		UpdateColumn("used_capacity", gorm.Expr("used_capacity + ?", img.FileSize)).Error; err != nil {
		nlog.Logger().Warn().Err(err).Uint("engine_id", engineCfg.ID).
			Msg("更新引擎用量失败")
	}

	metrics.UploadCounter.WithLabelValues(string(eng.Type())).Inc()
	nlog.Logger().Info().
		Uint("image_id", img.ID).
		Str("engine", eng.Name()).
		Str("key", key).
		Int64("size", img.FileSize).
		Msg("图片上传完成")

	return uploadResponse(&img, false), nil
}

// reconcileDuplicate 唯一索引冲突后的收敛：重查包含软删除行的记录，
// 软删除行复活后返回.
func (s *ImageService) reconcileDuplicate(ctx context.Context, md5hex, sha256hex string) (*types.UploadImageResponse, error) {
	gdb := s.dbClient.WithContext(ctx)

	var row model.Image
	if err := gdb.Where("md5 = ? AND sha256 = ?", md5hex, sha256hex).
		First(&row).Error; err != nil {
		return nil, fmt.Errorf("reconcile duplicate upload: %w", err)
	}

	if row.IsDeleted {
		if err := gdb.Model(&row).UpdateColumn("is_deleted", false).Error; err != nil {
			return nil, fmt.Errorf("restore deleted image: %w", err)
		}

		row.IsDeleted = false
	}

	metrics.DedupHitCounter.Inc()

	return uploadResponse(&row, true), nil
}

// validate 按全局上传限制校验内容.
func (s *ImageService) validate(data []byte, opts UploadOptions) error {
	upload := configs.GetConfig().Upload

	if len(data) == 0 {
		return &ValidationError{Reason: "empty file"}
	}

	if limit := upload.MaxSizeBytes(); limit > 0 && int64(len(data)) > limit {
		return &ValidationError{Reason: fmt.Sprintf("file exceeds size limit of %d bytes", limit)}
	}

	if !upload.TypeAllowed(opts.ContentType) {
		return &ValidationError{Reason: fmt.Sprintf("file type %q not allowed", opts.ContentType)}
	}

	return nil
}

// resolveEngine 按请求引擎ID（0为默认）在单次缓存读内取配置快照与实例.
func (s *ImageService) resolveEngine(id uint) (*model.StorageEngine, engine.Engine, error) {
	if id == 0 {
		cfg, eng, ok := s.registry.LookupDefault()
		if !ok {
			return nil, nil, ErrEngineUnavailable
		}

		return cfg, eng, nil
	}

	cfg, eng, ok := s.registry.Lookup(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: engine %d not active", ErrEngineUnavailable, id)
	}

	return cfg, eng, nil
}

// checkCapacity 校验引擎剩余容量. 用量以数据库为准：缓存里的配置快照
// 在上传后不会刷新，不能用来累计.
func (s *ImageService) checkCapacity(ctx context.Context, cfg *model.StorageEngine, size int64) error {
	if cfg.MaxCapacity == nil {
		return nil
	}

	var used int64
	if err := s.dbClient.WithContext(ctx).Model(&model.StorageEngine{}).
		Where("id = ?", cfg.ID).
		Select("used_capacity").
		Scan(&used).Error; err != nil {
		return fmt.Errorf("load engine %d usage: %w", cfg.ID, err)
	}

	if used+size > *cfg.MaxCapacity {
		return fmt.Errorf("%w: engine %q", ErrCapacityExceeded, cfg.Name)
	}

	return nil
}

// decodeDimensions 尽力提取图片宽高，无法解码的格式返回零值.
func decodeDimensions(data []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}

	return cfg.Width, cfg.Height
}

// uploadResponse 组装上传响应.
func uploadResponse(img *model.Image, dedup bool) *types.UploadImageResponse {
	return &types.UploadImageResponse{
		ID:           img.ID,
		URL:          img.OriginalURL,
		ThumbnailURL: img.ThumbnailURL,
		MD5:          img.MD5,
		SHA256:       img.SHA256,
		FileSize:     img.FileSize,
		Width:        img.Width,
		Height:       img.Height,
		Deduplicated: dedup,
	}
}

// GetByID 取单张未删除图片的元数据.
func (s *ImageService) GetByID(ctx context.Context, id uint) (*types.ImageInfo, error) {
	var img model.Image
	err := s.dbClient.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&img).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load image %d: %w", id, err)
	}

	info := imageInfo(&img)

	return &info, nil
}

// List 分页查询未删除图片，支持文件名关键字与引擎过滤.
func (s *ImageService) List(ctx context.Context, req *types.ListImagesRequest) (*types.ListImagesResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	query := s.dbClient.WithContext(ctx).
		Model(&model.Image{}).
		Where("is_deleted = ?", false)

	if req.Keyword != "" {
		query = query.Where("original_filename LIKE ?", "%"+req.Keyword+"%")
	}

	if req.EngineID != 0 {
		query = query.Where("storage_engine_id = ?", req.EngineID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	var rows []model.Image
	if err := query.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	items := make([]types.ImageInfo, 0, len(rows))
	for i := range rows {
		items = append(items, imageInfo(&rows[i]))
	}

	return &types.ListImagesResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// Delete 删除图片. 软删除只标记行；hard 同时删除存储对象并回收引擎用量.
func (s *ImageService) Delete(ctx context.Context, id uint, hard bool) error {
	gdb := s.dbClient.WithContext(ctx)

	var img model.Image
	err := gdb.Where("id = ? AND is_deleted = ?", id, false).First(&img).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrImageNotFound
	} else if err != nil {
		return fmt.Errorf("load image %d: %w", id, err)
	}

	if !hard {
		if err := gdb.Model(&img).UpdateColumn("is_deleted", true).Error; err != nil {
			return fmt.Errorf("soft delete image %d: %w", id, err)
		}

		return nil
	}

	// 硬删除先清理存储对象；引擎不在缓存时仅删元数据并告警
	if eng, ok := s.registry.Get(img.StorageEngineID); ok {
		if err := eng.Delete(ctx, img.StorageKey); err != nil {
			return fmt.Errorf("delete object %q: %w", img.StorageKey, err)
		}
	} else {
		nlog.Logger().Warn().
			Uint("image_id", id).
			Uint("engine_id", img.StorageEngineID).
			Msg("图片所属引擎不在缓存中，跳过对象删除")
	}

	if err := gdb.Delete(&img).Error; err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}

	if err := gdb.Model(&model.StorageEngine{}).
		Where("id = ?", img.StorageEngineID).
		UpdateColumn("used_capacity",
			gorm.Expr("CASE WHEN used_capacity > ? THEN used_capacity - ? ELSE 0 END", img.FileSize, img.FileSize)).Error; err != nil {
		nlog.Logger().Warn().Err(err).Uint("engine_id", img.StorageEngineID).
			Msg("回收引擎用量失败")
	}

	return nil
}

// BatchDelete 批量软删除，逐张处理并汇总失败项.
func (s *ImageService) BatchDelete(ctx context.Context, ids []uint) *types.BatchDeleteImagesResponse {
	resp := &types.BatchDeleteImagesResponse{}

	for _, id := range ids {
		if err := s.Delete(ctx, id, false); err != nil {
			resp.Failed = append(resp.Failed, id)

			continue
		}

		resp.Deleted++
	}

	return resp
}

// imageInfo 组装元数据视图.
func imageInfo(img *model.Image) types.ImageInfo {
	return types.ImageInfo{
		ID:           img.ID,
		FileName:     img.OriginalFilename,
		URL:          img.OriginalURL,
		ThumbnailURL: img.ThumbnailURL,
		MD5:          img.MD5,
		SHA256:       img.SHA256,
		FileSize:     img.FileSize,
		FileType:     img.FileType,
		Width:        img.Width,
		Height:       img.Height,
		StorageKey:   img.StorageKey,
		EngineID:     img.StorageEngineID,
		UploadIP:     img.UploadIP,
		CreatedAt:    img.CreatedAt,
	}
}

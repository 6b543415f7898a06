package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/model"
)

// GalaxyRepository 星系数据访问接口
type GalaxyRepository interface {
	Create(ctx context.Context, galaxy *model.Galaxy) error
	GetByID(ctx context.Context, id uint) (*model.Galaxy, error)
	GetByName(ctx context.Context, name string) (*model.Galaxy, error)
	// ListGood 返回未被标记为 is_bad 的星系，types 非空时只保留这些类型
	ListGood(ctx context.Context, types []string) ([]model.Galaxy, error)
	// GetSample 返回样本星系（is_sample=true 中 id 最小的一个）
	GetSample(ctx context.Context) (*model.Galaxy, error)
	// IncrementCounter 原子自增计数列，返回受影响行数（0 表示星系不存在）
	IncrementCounter(ctx context.Context, id uint, counter model.GalaxyCounter) (int64, error)
	// SetSpectrumStatus 写入光谱审核结论，返回受影响行数
	SetSpectrumStatus(ctx context.Context, id uint, good bool) (int64, error)
}

type galaxyRepo struct {
	db *gorm.DB
}

// NewGalaxyRepo 创建 GalaxyRepository 实例
func NewGalaxyRepo(db *gorm.DB) GalaxyRepository {
	return &galaxyRepo{db: db}
}

func (r *galaxyRepo) Create(ctx context.Context, galaxy *model.Galaxy) error {
	return r.db.WithContext(ctx).Create(galaxy).Error
}

func (r *galaxyRepo) GetByID(ctx context.Context, id uint) (*model.Galaxy, error) {
	var g model.Galaxy
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *galaxyRepo) GetByName(ctx context.Context, name string) (*model.Galaxy, error) {
	var g model.Galaxy
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *galaxyRepo) ListGood(ctx context.Context, types []string) ([]model.Galaxy, error) {
	var galaxies []model.Galaxy
	query := r.db.WithContext(ctx).Where("is_bad = ?", false)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	err := query.Order("id").Find(&galaxies).Error
	return galaxies, err
}

func (r *galaxyRepo) GetSample(ctx context.Context) (*model.Galaxy, error) {
	var g model.Galaxy
	if err := r.db.WithContext(ctx).Where("is_sample = ?", true).Order("id").First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// IncrementCounter 以 col = col + 1 单条语句完成，避免读-改-写丢失并发更新
func (r *galaxyRepo) IncrementCounter(ctx context.Context, id uint, counter model.GalaxyCounter) (int64, error) {
	if !counter.Valid() {
		return 0, fmt.Errorf("unknown galaxy counter %q", counter)
	}
	col := string(counter)
	result := r.db.WithContext(ctx).
		Model(&model.Galaxy{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1))
	return result.RowsAffected, result.Error
}

func (r *galaxyRepo) SetSpectrumStatus(ctx context.Context, id uint, good bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Galaxy{}).
		Where("id = ?", id).
		UpdateColumn("spec_is_good", good)
	return result.RowsAffected, result.Error
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmearl/cds-api/internal/model"
)

// ClassRepository 班级数据访问接口
type ClassRepository interface {
	// Create 班级码或 (educator_id, name) 冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id uint) (*model.Class, error)
	GetByCode(ctx context.Context, code string) (*model.Class, error)
	GetByEducatorAndName(ctx context.Context, educatorID uint, name string) (*model.Class, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByEducator(ctx context.Context, educatorID uint) ([]model.Class, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Class, error)
	// Delete 同时删除成员关系与故事关联，返回被删除的班级行数
	Delete(ctx context.Context, id uint) (int64, error)
}

// StudentClassRepository 学生-班级成员关系
type StudentClassRepository interface {
	// Create 已存在时静默成功
	Create(ctx context.Context, sc *model.StudentClass) error
	ListStudentIDs(ctx context.Context, classID uint) ([]uint, error)
	ListClassIDs(ctx context.Context, studentID uint) ([]uint, error)
}

// ClassStoryRepository 班级-故事关联
type ClassStoryRepository interface {
	// Create 已存在时静默成功
	Create(ctx context.Context, cs *model.ClassStory) error
	ListStoryNames(ctx context.Context, classID uint) ([]string, error)
}

// ── Class ──

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepo) GetByID(ctx context.Context, id uint) (*model.Class, error) {
	var c model.Class
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *classRepo) GetByCode(ctx context.Context, code string) (*model.Class, error) {
	var c model.Class
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *classRepo) GetByEducatorAndName(ctx context.Context, educatorID uint, name string) (*model.Class, error) {
	var c model.Class
	err := r.db.WithContext(ctx).
		Where("educator_id = ? AND name = ?", educatorID, name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *classRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Class{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *classRepo) ListByEducator(ctx context.Context, educatorID uint) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Where("educator_id = ?", educatorID).
		Order("id").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.Class, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []model.Class{}, nil
	}
	var classes []model.Class
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&classes).Error
	return classes, err
}

func (r *classRepo) Delete(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", id).Delete(&model.StudentClass{}).Error; err != nil {
			return err
		}
		if err := tx.Where("class_id = ?", id).Delete(&model.ClassStory{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Class{})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// ── StudentClass ──

type studentClassRepo struct {
	db *gorm.DB
}

// NewStudentClassRepo 创建 StudentClassRepository 实例
func NewStudentClassRepo(db *gorm.DB) StudentClassRepository {
	return &studentClassRepo{db: db}
}

func (r *studentClassRepo) Create(ctx context.Context, sc *model.StudentClass) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sc).Error
}

func (r *studentClassRepo) ListStudentIDs(ctx context.Context, classID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.StudentClass{}).
		Where("class_id = ?", classID).
		Order("student_id").
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return uniqueIDs(ids), nil
}

func (r *studentClassRepo) ListClassIDs(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.StudentClass{}).
		Where("student_id = ?", studentID).
		Order("class_id").
		Pluck("class_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return uniqueIDs(ids), nil
}

// ── ClassStory ──

type classStoryRepo struct {
	db *gorm.DB
}

// NewClassStoryRepo 创建 ClassStoryRepository 实例
func NewClassStoryRepo(db *gorm.DB) ClassStoryRepository {
	return &classStoryRepo{db: db}
}

func (r *classStoryRepo) Create(ctx context.Context, cs *model.ClassStory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cs).Error
}

func (r *classStoryRepo) ListStoryNames(ctx context.Context, classID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.ClassStory{}).
		Where("class_id = ?", classID).
		Order("story_name").
		Distinct().
		Pluck("story_name", &names).Error
	return names, err
}

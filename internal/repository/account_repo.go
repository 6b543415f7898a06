package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nmearl/cds-api/internal/model"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id uint) (*model.Student, error)
	// GetByEmail 邮箱查找不区分大小写
	GetByEmail(ctx context.Context, email string) (*model.Student, error)
	ListByVerificationCode(ctx context.Context, code string) ([]model.Student, error)
	VerificationCodeExists(ctx context.Context, code string) (bool, error)
	// MarkVerified 仅在 verified=false 时翻转，返回是否真的发生了更新
	MarkVerified(ctx context.Context, id uint) (bool, error)
	// RecordVisit 原子地 visits+1 并刷新 last_visit
	RecordVisit(ctx context.Context, id uint, at time.Time) error
	ListByIDs(ctx context.Context, ids []uint) ([]model.Student, error)
	List(ctx context.Context, offset, limit int) ([]model.Student, int64, error)
}

// EducatorRepository 教师数据访问接口
type EducatorRepository interface {
	Create(ctx context.Context, educator *model.Educator) error
	GetByID(ctx context.Context, id uint) (*model.Educator, error)
	GetByEmail(ctx context.Context, email string) (*model.Educator, error)
	ListByVerificationCode(ctx context.Context, code string) ([]model.Educator, error)
	VerificationCodeExists(ctx context.Context, code string) (bool, error)
	MarkVerified(ctx context.Context, id uint) (bool, error)
	RecordVisit(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, offset, limit int) ([]model.Educator, int64, error)
}

// VerificationCodeRepository 共享验证码命名空间
type VerificationCodeRepository interface {
	// Create 主键冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, code *model.VerificationCode) error
	Exists(ctx context.Context, code string) (bool, error)
}

// ── 通用账号查询 ──
// 学生与教师表结构中账号部分完全一致，以下函数按表模型参数化

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func firstByEmail(ctx context.Context, db *gorm.DB, dest interface{}, email string) error {
	return db.WithContext(ctx).
		Where("LOWER(email) = ?", normalizeEmail(email)).
		First(dest).Error
}

func codeExists(ctx context.Context, db *gorm.DB, m interface{}, code string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(m).
		Where("verification_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func markVerified(ctx context.Context, db *gorm.DB, m interface{}, id uint) (bool, error) {
	result := db.WithContext(ctx).
		Model(m).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	return result.RowsAffected > 0, result.Error
}

func recordVisit(ctx context.Context, db *gorm.DB, m interface{}, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(m).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"visits":     gorm.Expr("visits + ?", 1),
			"last_visit": at,
		}).Error
}

func listPage(ctx context.Context, db *gorm.DB, m, dest interface{}, offset, limit int) (int64, error) {
	var total int64
	query := db.WithContext(ctx).Model(m)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	if err := query.Offset(offset).Limit(limit).Order("id").Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ── Student ──

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id uint) (*model.Student, error) {
	var s model.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	var s model.Student
	if err := firstByEmail(ctx, r.db, &s, email); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) ListByVerificationCode(ctx context.Context, code string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).Where("verification_code = ?", code).Find(&students).Error
	return students, err
}

func (r *studentRepo) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(ctx, r.db, &model.Student{}, code)
}

func (r *studentRepo) MarkVerified(ctx context.Context, id uint) (bool, error) {
	return markVerified(ctx, r.db, &model.Student{}, id)
}

func (r *studentRepo) RecordVisit(ctx context.Context, id uint, at time.Time) error {
	return recordVisit(ctx, r.db, &model.Student{}, id, at)
}

// ListByIDs 按 id 集合一次性批量查询
func (r *studentRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.Student, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []model.Student{}, nil
	}
	var students []model.Student
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&students).Error
	return students, err
}

func (r *studentRepo) List(ctx context.Context, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	total, err := listPage(ctx, r.db, &model.Student{}, &students, offset, limit)
	return students, total, err
}

// ── Educator ──

type educatorRepo struct {
	db *gorm.DB
}

// NewEducatorRepo 创建 EducatorRepository 实例
func NewEducatorRepo(db *gorm.DB) EducatorRepository {
	return &educatorRepo{db: db}
}

func (r *educatorRepo) Create(ctx context.Context, educator *model.Educator) error {
	return r.db.WithContext(ctx).Create(educator).Error
}

func (r *educatorRepo) GetByID(ctx context.Context, id uint) (*model.Educator, error) {
	var e model.Educator
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *educatorRepo) GetByEmail(ctx context.Context, email string) (*model.Educator, error) {
	var e model.Educator
	if err := firstByEmail(ctx, r.db, &e, email); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *educatorRepo) ListByVerificationCode(ctx context.Context, code string) ([]model.Educator, error) {
	var educators []model.Educator
	err := r.db.WithContext(ctx).Where("verification_code = ?", code).Find(&educators).Error
	return educators, err
}

func (r *educatorRepo) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(ctx, r.db, &model.Educator{}, code)
}

func (r *educatorRepo) MarkVerified(ctx context.Context, id uint) (bool, error) {
	return markVerified(ctx, r.db, &model.Educator{}, id)
}

func (r *educatorRepo) RecordVisit(ctx context.Context, id uint, at time.Time) error {
	return recordVisit(ctx, r.db, &model.Educator{}, id, at)
}

func (r *educatorRepo) List(ctx context.Context, offset, limit int) ([]model.Educator, int64, error) {
	var educators []model.Educator
	total, err := listPage(ctx, r.db, &model.Educator{}, &educators, offset, limit)
	return educators, total, err
}

// ── VerificationCode ──

type verificationCodeRepo struct {
	db *gorm.DB
}

// NewVerificationCodeRepo 创建 VerificationCodeRepository 实例
func NewVerificationCodeRepo(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepo{db: db}
}

func (r *verificationCodeRepo) Create(ctx context.Context, code *model.VerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *verificationCodeRepo) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

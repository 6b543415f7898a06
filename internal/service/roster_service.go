package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/model"
	"github.com/nmearl/cds-api/internal/repository"
)

// rosterFanOut 单个花名册请求中并发执行的故事查询数上限
const rosterFanOut = 4

// RosterService 花名册聚合
type RosterService interface {
	// GetRosterInfo 故事名 → 班级学生在该故事下的进度
	GetRosterInfo(ctx context.Context, classID uint) (dto.RosterInfo, error)
	GetRosterInfoForStory(ctx context.Context, classID uint, storyName string) ([]model.StoryState, error)
}

type rosterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, logger *zap.Logger) RosterService {
	return &rosterService{repo: repo, logger: logger}
}

// GetRosterInfo 两段式展开：
//  1. class_stories → 故事名集合
//  2. students_classes → 学生 id 集合
//  3. 每个故事一次 IN 查询（故事之间并发）
func (s *rosterService) GetRosterInfo(ctx context.Context, classID uint) (dto.RosterInfo, error) {
	storyNames, err := s.repo.ClassStory.ListStoryNames(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级故事失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}
	studentIDs, err := s.repo.StudentClass.ListStudentIDs(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}

	roster := make(dto.RosterInfo, len(storyNames))
	for _, name := range storyNames {
		roster[name] = []model.StoryState{}
	}
	if len(storyNames) == 0 || len(studentIDs) == 0 {
		return roster, nil
	}

	results := make([][]model.StoryState, len(storyNames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterFanOut)
	for i, name := range storyNames {
		i, name := i, name
		g.Go(func() error {
			states, err := s.repo.StoryState.ListForStudents(gctx, name, studentIDs)
			if err != nil {
				return err
			}
			results[i] = states
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("查询花名册进度失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}

	for i, name := range storyNames {
		if results[i] != nil {
			roster[name] = results[i]
		}
	}
	return roster, nil
}

func (s *rosterService) GetRosterInfoForStory(ctx context.Context, classID uint, storyName string) ([]model.StoryState, error) {
	studentIDs, err := s.repo.StudentClass.ListStudentIDs(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.Uint("class_id", classID), zap.Error(err))
		return nil, err
	}
	if len(studentIDs) == 0 {
		return []model.StoryState{}, nil
	}
	states, err := s.repo.StoryState.ListForStudents(ctx, storyName, studentIDs)
	if err != nil {
		s.logger.Error("查询故事进度失败",
			zap.Uint("class_id", classID),
			zap.String("story_name", storyName),
			zap.Error(err),
		)
		return nil, err
	}
	return states, nil
}

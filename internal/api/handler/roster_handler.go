package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/service"
	"github.com/nmearl/cds-api/pkg/response"
)

// RosterHandler 花名册 HTTP 处理器
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// GetRosterInfo 班级全部故事的学生进度
// GET /api/v1/roster-info/:classID
func (h *RosterHandler) GetRosterInfo(c *gin.Context) {
	classID, ok := MustGetUintParam(c, "classID")
	if !ok {
		return
	}
	info, err := h.rosterSvc.GetRosterInfo(c.Request.Context(), classID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, info)
}

// GetRosterInfoForStory 班级单个故事的学生进度
// GET /api/v1/roster-info/:classID/:storyName
func (h *RosterHandler) GetRosterInfoForStory(c *gin.Context) {
	classID, ok := MustGetUintParam(c, "classID")
	if !ok {
		return
	}
	states, err := h.rosterSvc.GetRosterInfoForStory(c.Request.Context(), classID, c.Param("storyName"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": states})
}

// ═══════════════════════════════════════════════════════════
// StoryHandler
// ═══════════════════════════════════════════════════════════

// StoryHandler 故事进度与学生偏好 HTTP 处理器
type StoryHandler struct {
	storySvc service.StoryService
}

// NewStoryHandler 创建 StoryHandler
func NewStoryHandler(storySvc service.StoryService) *StoryHandler {
	return &StoryHandler{storySvc: storySvc}
}

// GetStoryState 读取学生在某故事下的进度
// GET /api/v1/story-state/:studentID/:storyName
func (h *StoryHandler) GetStoryState(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	state, err := h.storySvc.GetStoryState(c.Request.Context(), studentID, c.Param("storyName"))
	if err != nil {
		response.InternalError(c)
		return
	}
	if state == nil {
		response.NotFound(c, response.CodeNotFound, "暂无进度")
		return
	}
	response.OK(c, state)
}

// UpdateStoryState 整体替换学生在某故事下的进度
// PUT /api/v1/story-state/:studentID/:storyName
func (h *StoryHandler) UpdateStoryState(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	var req dto.UpdateStoryStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	state, err := h.storySvc.UpdateStoryState(c.Request.Context(), studentID, c.Param("storyName"), req.State)
	if err != nil {
		h.handleStoryError(c, err)
		return
	}
	response.OK(c, state)
}

// GetStudentOptions 学生偏好（未保存时返回默认值）
// GET /api/v1/students/:id/options
func (h *StoryHandler) GetStudentOptions(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	opts, err := h.storySvc.GetStudentOptions(c.Request.Context(), studentID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, opts)
}

// UpdateStudentOptions 部分更新学生偏好
// PUT /api/v1/students/:id/options
func (h *StoryHandler) UpdateStudentOptions(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	opts, err := h.storySvc.UpdateStudentOptions(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleStoryError(c, err)
		return
	}
	response.OK(c, opts)
}

func (h *StoryHandler) handleStoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, response.CodeStudentNotFound, "学生不存在")
	case errors.Is(err, service.ErrInvalidStoryState):
		response.BadRequest(c, response.CodeInvalidState, "故事进度无效")
	default:
		response.InternalError(c)
	}
}

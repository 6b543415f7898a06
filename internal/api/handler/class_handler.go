package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/service"
	"github.com/nmearl/cds-api/pkg/response"
)

// ClassHandler 班级模块 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// CreateClass 创建班级
// POST /api/v1/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	resp, err := h.classSvc.CreateClass(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	switch resp.Status {
	case dto.CreateClassOk:
		response.Created(c, resp)
	case dto.CreateClassAlreadyExists:
		response.Status(c, http.StatusConflict, response.CodeClassExists, "同名班级已存在", resp)
	default:
		response.Status(c, http.StatusBadRequest, response.CodeInvalidParams, "教师不存在或班级名无效", resp)
	}
}

// DeleteClass 删除班级（连同成员关系与故事挂载）
// DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.classSvc.DeleteClass(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c)
		return
	}
	if !deleted {
		response.NotFound(c, response.CodeClassNotFound, "班级不存在")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// ValidateClassroomCode 校验班级码是否存在
// GET /api/v1/classes/validate-code/:code
func (h *ClassHandler) ValidateClassroomCode(c *gin.Context) {
	valid, err := h.classSvc.ValidateClassroomCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.ValidateCodeResponse{Valid: valid})
}

// AddStudentToClass 将学生加入班级，重复加入视为成功
// POST /api/v1/classes/:id/students
func (h *ClassHandler) AddStudentToClass(c *gin.Context) {
	classID, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddStudentToClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	if err := h.classSvc.AddStudentToClass(c.Request.Context(), classID, req.StudentID); err != nil {
		h.handleClassError(c, err)
		return
	}
	response.OK(c, gin.H{"class_id": classID, "student_id": req.StudentID})
}

// GetStudentsForClass 班级学生列表
// GET /api/v1/classes/:id/students
func (h *ClassHandler) GetStudentsForClass(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	students, err := h.classSvc.GetStudentsForClass(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": students})
}

// GetClassesForEducator 教师的班级列表
// GET /api/v1/educators/:id/classes
func (h *ClassHandler) GetClassesForEducator(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	classes, err := h.classSvc.GetClassesForEducator(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": classes})
}

// GetClassesForStudent 学生所属班级列表
// GET /api/v1/students/:id/classes
func (h *ClassHandler) GetClassesForStudent(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	classes, err := h.classSvc.GetClassesForStudent(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": classes})
}

// handleClassError 将 Service 层错误映射为 HTTP 响应
func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, response.CodeClassNotFound, "班级不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, response.CodeStudentNotFound, "学生不存在")
	default:
		response.InternalError(c)
	}
}

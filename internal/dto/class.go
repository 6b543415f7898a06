package dto

import (
	"encoding/json"

	"github.com/nmearl/cds-api/internal/model"
)

// ── 班级模块 DTO ──

// CreateClassRequest 创建班级请求
type CreateClassRequest struct {
	EducatorID uint   `json:"educator_id" binding:"required"`
	Name       string `json:"name"        binding:"required,min=1,max=255"`
}

// AddStudentToClassRequest 将学生加入班级
type AddStudentToClassRequest struct {
	StudentID uint `json:"student_id" binding:"required"`
}

// CreateClassResult 创建班级结果
type CreateClassResult string

const (
	CreateClassOk            CreateClassResult = "ok"
	CreateClassAlreadyExists CreateClassResult = "already_exists"
	CreateClassBadRequest    CreateClassResult = "bad_request"
	CreateClassError         CreateClassResult = "error"
)

// CreateClassResponse 创建班级响应
// StoryAttached=false 表示班级已创建但默认故事挂载失败
type CreateClassResponse struct {
	Status        CreateClassResult `json:"status"`
	Class         *model.Class      `json:"class,omitempty"`
	StoryAttached bool              `json:"story_attached"`
}

// ValidateCodeResponse 班级码校验响应
type ValidateCodeResponse struct {
	Valid bool `json:"valid"`
}

// ── 故事进度 / 偏好 ──

// UpdateStoryStateRequest 整体替换故事进度
type UpdateStoryStateRequest struct {
	State json.RawMessage `json:"state" binding:"required"`
}

// UpdateStudentOptionsRequest 偏好部分更新，未提供字段保持不变
type UpdateStudentOptionsRequest struct {
	SpeechAutoread *bool    `json:"speech_autoread"`
	SpeechRate     *float64 `json:"speech_rate"  binding:"omitempty,gt=0"`
	SpeechPitch    *float64 `json:"speech_pitch" binding:"omitempty,gt=0"`
}

// Columns 返回已提供字段的列名→值映射
func (r *UpdateStudentOptionsRequest) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	if r.SpeechAutoread != nil {
		cols["speech_autoread"] = *r.SpeechAutoread
	}
	if r.SpeechRate != nil {
		cols["speech_rate"] = *r.SpeechRate
	}
	if r.SpeechPitch != nil {
		cols["speech_pitch"] = *r.SpeechPitch
	}
	return cols
}

// RosterInfo 故事名 → 该故事下班级学生的进度（附学生身份）
type RosterInfo map[string][]model.StoryState

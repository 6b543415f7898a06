package model

import (
	"time"

	"gorm.io/datatypes"
)

// StoryState 学生故事进度表，对应 story_states
// (student_id, story_name) 至多一行
type StoryState struct {
	StudentID uint           `gorm:"primaryKey;autoIncrement:false"  json:"student_id"`
	StoryName string         `gorm:"type:varchar(64);primaryKey"     json:"story_name"`
	State     datatypes.JSON `gorm:"column:story_state;not null"     json:"story_state"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"         json:"updated_at"`

	// 花名册展示用的最小学生信息
	Student *StudentIdentity `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (StoryState) TableName() string { return "story_states" }

// StudentOptions 学生朗读偏好，对应 student_options
type StudentOptions struct {
	StudentID      uint    `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	SpeechAutoread bool    `gorm:"not null;default:false"         json:"speech_autoread"`
	SpeechRate     float64 `gorm:"not null;default:1"             json:"speech_rate"`
	SpeechPitch    float64 `gorm:"not null;default:1"             json:"speech_pitch"`
}

// TableName 指定表名
func (StudentOptions) TableName() string { return "student_options" }

// DefaultStudentOptions 未保存过偏好时返回的默认值
func DefaultStudentOptions(studentID uint) StudentOptions {
	return StudentOptions{StudentID: studentID, SpeechAutoread: false, SpeechRate: 1, SpeechPitch: 1}
}

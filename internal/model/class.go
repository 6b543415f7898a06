package model

import "time"

// DefaultStoryName 新建班级时自动挂载的故事
const DefaultStoryName = "hubbles_law"

// Class 班级表，对应 classes
type Class struct {
	ID         uint      `gorm:"primaryKey"                                                   json:"id"`
	EducatorID uint      `gorm:"not null;uniqueIndex:uk_classes_educator_name,priority:1"     json:"educator_id"`
	Name       string    `gorm:"type:varchar(255);not null;uniqueIndex:uk_classes_educator_name,priority:2" json:"name"`
	Code       string    `gorm:"type:varchar(32);not null;uniqueIndex"                        json:"code"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"                                      json:"created_at"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// StudentClass 学生-班级关联表，对应 students_classes
type StudentClass struct {
	StudentID uint `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	ClassID   uint `gorm:"primaryKey;autoIncrement:false;index" json:"class_id"`
}

// TableName 指定表名
func (StudentClass) TableName() string { return "students_classes" }

// Story 故事表，对应 stories
type Story struct {
	Name        string `gorm:"type:varchar(64);primaryKey" json:"name"`
	DisplayName string `gorm:"type:varchar(255);not null"  json:"display_name"`
}

// TableName 指定表名
func (Story) TableName() string { return "stories" }

// ClassStory 班级-故事关联表，对应 class_stories
type ClassStory struct {
	ClassID   uint   `gorm:"primaryKey;autoIncrement:false"      json:"class_id"`
	StoryName string `gorm:"type:varchar(64);primaryKey"          json:"story_name"`
}

// TableName 指定表名
func (ClassStory) TableName() string { return "class_stories" }

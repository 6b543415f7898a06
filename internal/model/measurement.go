package model

import "time"

// HubbleMeasurement 主测量表，对应 hubble_measurements
// 身份由复合键 (student_id, galaxy_id) 决定，不存在代理主键
type HubbleMeasurement struct {
	StudentID uint `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	GalaxyID  uint `gorm:"primaryKey;autoIncrement:false" json:"galaxy_id"`
	MeasurementFields
	LastModified time.Time `gorm:"not null;autoUpdateTime" json:"last_modified"`

	// 关联
	Galaxy *Galaxy `gorm:"foreignKey:GalaxyID" json:"galaxy,omitempty"`
}

// TableName 指定表名
func (HubbleMeasurement) TableName() string { return "hubble_measurements" }

// MeasurementNumber 样本测量的尝试序号
type MeasurementNumber string

const (
	MeasurementFirst  MeasurementNumber = "first"
	MeasurementSecond MeasurementNumber = "second"
)

// Valid 仅接受 first / second
func (n MeasurementNumber) Valid() bool {
	return n == MeasurementFirst || n == MeasurementSecond
}

// SampleHubbleMeasurement 样本测量表，对应 sample_hubble_measurements
// 身份由复合键 (student_id, measurement_number) 决定
type SampleHubbleMeasurement struct {
	StudentID         uint              `gorm:"primaryKey;autoIncrement:false"      json:"student_id"`
	MeasurementNumber MeasurementNumber `gorm:"type:varchar(6);primaryKey"           json:"measurement_number"`
	GalaxyID          uint              `gorm:"not null"                             json:"galaxy_id"`
	MeasurementFields
	LastModified time.Time `gorm:"not null;autoUpdateTime" json:"last_modified"`

	Galaxy *Galaxy `gorm:"foreignKey:GalaxyID" json:"galaxy,omitempty"`
}

// TableName 指定表名
func (SampleHubbleMeasurement) TableName() string { return "sample_hubble_measurements" }

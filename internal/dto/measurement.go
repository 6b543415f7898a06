package dto

import (
	"encoding/json"
	"strings"

	"github.com/nmearl/cds-api/internal/model"
)

// GalaxyFileSuffix 星系名的固定后缀，裸名查找前补齐
const GalaxyFileSuffix = ".fits"

// ── GalaxyRef ──

// GalaxyRef 星系引用：按 id 或按名称，二者取一
type GalaxyRef struct {
	id     uint
	name   string
	byName bool
}

// GalaxyByID 按 id 引用
func GalaxyByID(id uint) GalaxyRef { return GalaxyRef{id: id} }

// GalaxyByName 按名称引用，缺少后缀时自动补齐
func GalaxyByName(name string) GalaxyRef {
	name = strings.TrimSpace(name)
	if name != "" && !strings.HasSuffix(name, GalaxyFileSuffix) {
		name += GalaxyFileSuffix
	}
	return GalaxyRef{name: name, byName: true}
}

// ByName 是否为按名称引用
func (r GalaxyRef) ByName() bool { return r.byName }

// ID 按 id 引用时的 id
func (r GalaxyRef) ID() uint { return r.id }

// Name 按名称引用时的规范化名称
func (r GalaxyRef) Name() string { return r.name }

// Empty 既无 id 也无名称
func (r GalaxyRef) Empty() bool {
	if r.byName {
		return r.name == ""
	}
	return r.id == 0
}

// GalaxySelector 请求中 galaxy_id / galaxy_name 二选一，id 优先
type GalaxySelector struct {
	GalaxyID   *uint   `json:"galaxy_id"`
	GalaxyName *string `json:"galaxy_name"`
}

// Ref 转换为 GalaxyRef，两者都缺失时 ok=false
func (s GalaxySelector) Ref() (GalaxyRef, bool) {
	if s.GalaxyID != nil && *s.GalaxyID != 0 {
		return GalaxyByID(*s.GalaxyID), true
	}
	if s.GalaxyName != nil {
		ref := GalaxyByName(*s.GalaxyName)
		if !ref.Empty() {
			return ref, true
		}
	}
	return GalaxyRef{}, false
}

// ── 请求 ──

// SubmitMeasurementRequest 提交主测量
type SubmitMeasurementRequest struct {
	StudentID uint `json:"student_id" binding:"required"`
	GalaxySelector
	model.MeasurementFields
}

// SubmitSampleMeasurementRequest 提交样本测量，measurement_number 缺省为 first
type SubmitSampleMeasurementRequest struct {
	StudentID         uint   `json:"student_id"         binding:"required"`
	MeasurementNumber string `json:"measurement_number"`
	GalaxySelector
	model.MeasurementFields
}

// Number 解析测量序号（含默认值）
func (r *SubmitSampleMeasurementRequest) Number() model.MeasurementNumber {
	if r.MeasurementNumber == "" {
		return model.MeasurementFirst
	}
	return model.MeasurementNumber(r.MeasurementNumber)
}

// MarkGalaxyRequest 标记星系
type MarkGalaxyRequest struct {
	GalaxySelector
}

// SetSpectrumStatusRequest 写入光谱审核结论
// Good 保留原始 JSON，便于区分缺失、非布尔值与 false
type SetSpectrumStatusRequest struct {
	GalaxyName string          `json:"galaxy_name"`
	Good       json.RawMessage `json:"good"`
}

// GoodValue 解析 good，只接受 JSON 布尔值
func (r SetSpectrumStatusRequest) GoodValue() (good bool, ok bool) {
	switch strings.TrimSpace(string(r.Good)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// ── 状态枚举 ──

// SubmitMeasurementResult 提交测量结果
type SubmitMeasurementResult string

const (
	MeasurementCreated    SubmitMeasurementResult = "measurement_created"
	MeasurementUpdated    SubmitMeasurementResult = "measurement_updated"
	MeasurementNoStudent  SubmitMeasurementResult = "no_such_student"
	MeasurementBadRequest SubmitMeasurementResult = "bad_request"
)

// Success 新建或更新均为成功
func (r SubmitMeasurementResult) Success() bool {
	return r == MeasurementCreated || r == MeasurementUpdated
}

// RemoveMeasurementResult 删除测量结果
type RemoveMeasurementResult string

const (
	MeasurementRemoved          RemoveMeasurementResult = "measurement_removed"
	MeasurementNotFound         RemoveMeasurementResult = "no_such_measurement"
	RemoveMeasurementBadRequest RemoveMeasurementResult = "bad_request"
)

// MarkGalaxyResult 标记星系结果
type MarkGalaxyResult string

const (
	GalaxyMarkedBad         MarkGalaxyResult = "galaxy_marked_bad"
	GalaxySpectrumMarkedBad MarkGalaxyResult = "galaxy_spectrum_marked_bad"
	GalaxyTileloadMarkedBad MarkGalaxyResult = "galaxy_tileload_marked_bad"
	GalaxyNotFound          MarkGalaxyResult = "no_such_galaxy"
	GalaxyMissingRef        MarkGalaxyResult = "missing_id_or_name"
)

// SpectrumStatusResult 光谱审核写入结果
type SpectrumStatusResult string

const (
	SpectrumStatusUpdated SpectrumStatusResult = "status_updated"
	SpectrumNoSuchGalaxy  SpectrumStatusResult = "no_such_galaxy"
	SpectrumInvalidStatus SpectrumStatusResult = "invalid_status"
)

// ── 响应 ──

// SubmitMeasurementResponse 主测量提交响应
type SubmitMeasurementResponse struct {
	Status      SubmitMeasurementResult  `json:"status"`
	Success     bool                     `json:"success"`
	Measurement *model.HubbleMeasurement `json:"measurement,omitempty"`
}

// SubmitSampleMeasurementResponse 样本测量提交响应
type SubmitSampleMeasurementResponse struct {
	Status      SubmitMeasurementResult        `json:"status"`
	Success     bool                           `json:"success"`
	Measurement *model.SampleHubbleMeasurement `json:"measurement,omitempty"`
}

// RemoveMeasurementResponse 删除测量响应
type RemoveMeasurementResponse struct {
	Status  RemoveMeasurementResult `json:"status"`
	Success bool                    `json:"success"`
}

// MarkGalaxyResponse 标记星系响应
type MarkGalaxyResponse struct {
	Status MarkGalaxyResult `json:"status"`
}

// SetSpectrumStatusResponse 光谱审核响应，galaxy 为补齐后缀后的名称
type SetSpectrumStatusResponse struct {
	Status     SpectrumStatusResult `json:"status"`
	Galaxy     string               `json:"galaxy"`
	MarkedGood *bool                `json:"marked_good,omitempty"`
	MarkedBad  *bool                `json:"marked_bad,omitempty"`
}

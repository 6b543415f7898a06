package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/service"
	"github.com/nmearl/cds-api/pkg/response"
)

// HubbleHandler hubbles_law 故事的测量与星系接口
type HubbleHandler struct {
	measurementSvc service.MeasurementService
	galaxySvc      service.GalaxyService
}

// NewHubbleHandler 创建 HubbleHandler
func NewHubbleHandler(measurementSvc service.MeasurementService, galaxySvc service.GalaxyService) *HubbleHandler {
	return &HubbleHandler{measurementSvc: measurementSvc, galaxySvc: galaxySvc}
}

var submitHTTPStatus = map[dto.SubmitMeasurementResult]int{
	dto.MeasurementCreated:    http.StatusCreated,
	dto.MeasurementUpdated:    http.StatusOK,
	dto.MeasurementNoStudent:  http.StatusNotFound,
	dto.MeasurementBadRequest: http.StatusBadRequest,
}

var removeHTTPStatus = map[dto.RemoveMeasurementResult]int{
	dto.MeasurementRemoved:          http.StatusOK,
	dto.MeasurementNotFound:         http.StatusNotFound,
	dto.RemoveMeasurementBadRequest: http.StatusBadRequest,
}

var spectrumHTTPStatus = map[dto.SpectrumStatusResult]int{
	dto.SpectrumStatusUpdated: http.StatusOK,
	dto.SpectrumNoSuchGalaxy:  http.StatusBadRequest,
	dto.SpectrumInvalidStatus: http.StatusBadRequest,
}

var markHTTPStatus = map[dto.MarkGalaxyResult]int{
	dto.GalaxyMarkedBad:         http.StatusOK,
	dto.GalaxySpectrumMarkedBad: http.StatusOK,
	dto.GalaxyTileloadMarkedBad: http.StatusOK,
	dto.GalaxyNotFound:          http.StatusNotFound,
	dto.GalaxyMissingRef:        http.StatusBadRequest,
}

// ═══════════════════════════════════════════════════════════
// Submit
// ═══════════════════════════════════════════════════════════

// SubmitMeasurement 提交主测量（同一学生同一星系合并）
// PUT /api/v1/hubbles_law/submit-measurement
func (h *HubbleHandler) SubmitMeasurement(c *gin.Context) {
	var req dto.SubmitMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		writeSubmit(c, dto.MeasurementBadRequest, &dto.SubmitMeasurementResponse{Status: dto.MeasurementBadRequest})
		return
	}

	resp, err := h.measurementSvc.SubmitMeasurement(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	writeSubmit(c, resp.Status, resp)
}

// SubmitSampleMeasurement 提交样本测量（first / second 各一条）
// PUT /api/v1/hubbles_law/sample-measurement
func (h *HubbleHandler) SubmitSampleMeasurement(c *gin.Context) {
	var req dto.SubmitSampleMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		writeSubmit(c, dto.MeasurementBadRequest, &dto.SubmitSampleMeasurementResponse{Status: dto.MeasurementBadRequest})
		return
	}

	resp, err := h.measurementSvc.SubmitSampleMeasurement(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	writeSubmit(c, resp.Status, resp)
}

func writeSubmit(c *gin.Context, status dto.SubmitMeasurementResult, data interface{}) {
	if status.Success() {
		response.Status(c, submitHTTPStatus[status], 0, "success", data)
		return
	}
	response.Status(c, submitHTTPStatus[status], response.CodeMeasurementStatus, string(status), data)
}

// ═══════════════════════════════════════════════════════════
// Remove
// ═══════════════════════════════════════════════════════════

// RemoveMeasurement 删除主测量，galaxyIdentifier 为数字时按 id，否则按名称
// DELETE /api/v1/hubbles_law/measurement/:studentID/:galaxyIdentifier
func (h *HubbleHandler) RemoveMeasurement(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}

	resp, err := h.measurementSvc.RemoveMeasurement(c.Request.Context(), studentID, parseGalaxyIdentifier(c.Param("galaxyIdentifier")))
	if err != nil {
		response.InternalError(c)
		return
	}
	writeRemove(c, resp)
}

// RemoveSampleMeasurement 删除样本测量
// DELETE /api/v1/hubbles_law/sample-measurement/:studentID/:measurementNumber
func (h *HubbleHandler) RemoveSampleMeasurement(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}

	resp, err := h.measurementSvc.RemoveSampleMeasurement(c.Request.Context(), studentID, c.Param("measurementNumber"))
	if err != nil {
		response.InternalError(c)
		return
	}
	writeRemove(c, resp)
}

func writeRemove(c *gin.Context, resp *dto.RemoveMeasurementResponse) {
	if resp.Success {
		response.Status(c, http.StatusOK, 0, "success", resp)
		return
	}
	response.Status(c, removeHTTPStatus[resp.Status], response.CodeMeasurementStatus, string(resp.Status), resp)
}

func parseGalaxyIdentifier(raw string) dto.GalaxyRef {
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return dto.GalaxyByID(uint(id))
	}
	return dto.GalaxyByName(raw)
}

// ═══════════════════════════════════════════════════════════
// Read
// ═══════════════════════════════════════════════════════════

// GetStudentMeasurements 学生全部主测量
// GET /api/v1/hubbles_law/measurements/:studentID
func (h *HubbleHandler) GetStudentMeasurements(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	list, err := h.measurementSvc.ListStudentMeasurements(c.Request.Context(), studentID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetMeasurement 学生在某星系上的主测量
// GET /api/v1/hubbles_law/measurements/:studentID/:galaxyID
func (h *HubbleHandler) GetMeasurement(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	galaxyID, ok := MustGetUintParam(c, "galaxyID")
	if !ok {
		return
	}
	m, err := h.measurementSvc.GetMeasurement(c.Request.Context(), studentID, galaxyID)
	writeFound(c, m, m == nil, err)
}

// GetSampleMeasurements 全部样本测量
// GET /api/v1/hubbles_law/sample-measurements?filter_null=true&measurement_number=first
func (h *HubbleHandler) GetSampleMeasurements(c *gin.Context) {
	ctx := c.Request.Context()

	if number := c.Query("measurement_number"); number != "" {
		list, err := h.measurementSvc.ListNthSampleMeasurements(ctx, number)
		h.writeSampleList(c, list, err)
		return
	}

	// 仅 filter_null=false 关闭过滤
	filterNull := !strings.EqualFold(c.Query("filter_null"), "false")
	list, err := h.measurementSvc.ListAllSampleMeasurements(ctx, filterNull)
	h.writeSampleList(c, list, err)
}

// GetStudentSampleMeasurements 学生全部样本测量
// GET /api/v1/hubbles_law/sample-measurements/:studentID
func (h *HubbleHandler) GetStudentSampleMeasurements(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	list, err := h.measurementSvc.ListStudentSampleMeasurements(c.Request.Context(), studentID)
	h.writeSampleList(c, list, err)
}

// GetSampleMeasurement 学生某一次样本测量
// GET /api/v1/hubbles_law/sample-measurements/:studentID/:measurementNumber
func (h *HubbleHandler) GetSampleMeasurement(c *gin.Context) {
	studentID, ok := MustGetUintParam(c, "studentID")
	if !ok {
		return
	}
	m, err := h.measurementSvc.GetSampleMeasurement(c.Request.Context(), studentID, c.Param("measurementNumber"))
	if errors.Is(err, service.ErrInvalidMeasurementNumber) {
		response.BadRequest(c, response.CodeInvalidParams, err.Error())
		return
	}
	writeFound(c, m, m == nil, err)
}

func (h *HubbleHandler) writeSampleList(c *gin.Context, list interface{}, err error) {
	if errors.Is(err, service.ErrInvalidMeasurementNumber) {
		response.BadRequest(c, response.CodeInvalidParams, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ── Galaxy ──

// GetGalaxies 全部可用星系，types 可重复或逗号分隔
// GET /api/v1/hubbles_law/galaxies?types=Sp,E
func (h *HubbleHandler) GetGalaxies(c *gin.Context) {
	list, err := h.galaxySvc.ListGalaxies(c.Request.Context(), parseTypes(c.QueryArray("types")))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

func parseTypes(raw []string) []string {
	var types []string
	for _, item := range raw {
		for _, t := range strings.Split(item, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	return types
}

// GetGalaxy 单个星系
// GET /api/v1/hubbles_law/galaxies/:id
func (h *HubbleHandler) GetGalaxy(c *gin.Context) {
	id, ok := MustGetUintParam(c, "id")
	if !ok {
		return
	}
	g, err := h.galaxySvc.GetGalaxy(c.Request.Context(), id)
	writeFound(c, g, g == nil, err)
}

// GetSampleGalaxy 样本星系
// GET /api/v1/hubbles_law/sample-galaxy
func (h *HubbleHandler) GetSampleGalaxy(c *gin.Context) {
	g, err := h.galaxySvc.GetSampleGalaxy(c.Request.Context())
	writeFound(c, g, g == nil, err)
}

// writeFound 读取结果为空时返回 404
func writeFound(c *gin.Context, data interface{}, missing bool, err error) {
	switch {
	case err != nil:
		response.InternalError(c)
	case missing:
		response.NotFound(c, response.CodeNotFound, "记录不存在")
	default:
		response.OK(c, data)
	}
}

// ═══════════════════════════════════════════════════════════
// Mark
// ═══════════════════════════════════════════════════════════

type markFunc func(ctx context.Context, sel dto.GalaxySelector) (*dto.MarkGalaxyResponse, error)

// MarkGalaxyBad 上报星系异常
// PUT /api/v1/hubbles_law/mark-galaxy-bad
func (h *HubbleHandler) MarkGalaxyBad(c *gin.Context) {
	h.mark(c, h.galaxySvc.MarkBad)
}

// MarkSpectrumBad 上报光谱异常
// POST /api/v1/hubbles_law/mark-spectrum-bad
func (h *HubbleHandler) MarkSpectrumBad(c *gin.Context) {
	h.mark(c, h.galaxySvc.MarkSpectrumBad)
}

// MarkTileloadBad 上报图块加载异常
// POST /api/v1/hubbles_law/mark-tileload-bad
func (h *HubbleHandler) MarkTileloadBad(c *gin.Context) {
	h.mark(c, h.galaxySvc.MarkTileloadBad)
}

func (h *HubbleHandler) mark(c *gin.Context, fn markFunc) {
	var req dto.MarkGalaxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		resp := &dto.MarkGalaxyResponse{Status: dto.GalaxyMissingRef}
		response.Status(c, http.StatusBadRequest, response.CodeGalaxyStatus, string(resp.Status), resp)
		return
	}

	resp, err := fn(c.Request.Context(), req.GalaxySelector)
	if err != nil {
		response.InternalError(c)
		return
	}

	httpStatus := markHTTPStatus[resp.Status]
	if httpStatus == http.StatusOK {
		response.Status(c, httpStatus, 0, "success", resp)
		return
	}
	response.Status(c, httpStatus, response.CodeGalaxyStatus, string(resp.Status), resp)
}

// SetSpectrumStatus 写入光谱审核结论
// POST /api/v1/hubbles_law/set-spectrum-status
func (h *HubbleHandler) SetSpectrumStatus(c *gin.Context) {
	var req dto.SetSpectrumStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		resp := &dto.SetSpectrumStatusResponse{Status: dto.SpectrumInvalidStatus}
		response.Status(c, http.StatusBadRequest, response.CodeGalaxyStatus, string(resp.Status), resp)
		return
	}

	resp, err := h.galaxySvc.SetSpectrumStatus(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	if resp.Status == dto.SpectrumStatusUpdated {
		response.Status(c, http.StatusOK, 0, "success", resp)
		return
	}
	response.Status(c, spectrumHTTPStatus[resp.Status], response.CodeGalaxyStatus, string(resp.Status), resp)
}

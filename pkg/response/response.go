package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── 错误码 ──
// 1xxxx 通用，2xxxx 账号，3xxxx 班级，4xxxx 测量/星系，5xxxx 服务端

const (
	CodeInvalidParams   = 10001
	CodeTooManyRequests = 10004
	CodeBodyTooLarge    = 10005
	CodeNotFound        = 10006

	CodeAccountStatus   = 20001 // 注册/登录/验证未成功，具体结果见 data.status
	CodeStudentNotFound = 20002

	CodeClassExists     = 30001
	CodeClassNotFound   = 30002
	CodeExportNoStories = 30003

	CodeMeasurementStatus = 40001 // 测量提交/删除未成功，具体结果见 data.status
	CodeGalaxyStatus      = 40002
	CodeInvalidState      = 40003

	CodeInternal = 50000
)

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Status 业务状态响应：请求被处理，但结果由 data 中的 status 字段表达
// 用于注册/登录/验证/测量提交等 "状态即结果" 的接口
func Status(c *gin.Context, httpStatus int, code int, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}

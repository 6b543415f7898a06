package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nmearl/cds-api/internal/dto"
	"github.com/nmearl/cds-api/internal/service"
	"github.com/nmearl/cds-api/pkg/response"
)

// AccountHandler 账号模块 HTTP 处理器
// 注册/登录/验证的业务结果全部体现在 data.status 中，存储故障降级为 status=error
type AccountHandler struct {
	accountSvc service.AccountService
	logger     *zap.Logger
}

// NewAccountHandler 创建 AccountHandler
func NewAccountHandler(accountSvc service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, logger: logger}
}

// ── 状态 → HTTP 状态码 ──

var signUpHTTPStatus = map[dto.SignUpResult]int{
	dto.SignUpOk:          http.StatusCreated,
	dto.SignUpEmailExists: http.StatusConflict,
	dto.SignUpBadRequest:  http.StatusBadRequest,
	dto.SignUpError:       http.StatusInternalServerError,
}

var loginHTTPStatus = map[dto.LoginResult]int{
	dto.LoginOk:                http.StatusOK,
	dto.LoginEmailNotExist:     http.StatusNotFound,
	dto.LoginIncorrectPassword: http.StatusUnauthorized,
	dto.LoginNotVerified:       http.StatusForbidden,
	dto.LoginBadRequest:        http.StatusBadRequest,
	dto.LoginError:             http.StatusInternalServerError,
}

var verificationHTTPStatus = map[dto.VerificationResult]int{
	dto.VerificationOk:              http.StatusOK,
	dto.VerificationAlreadyVerified: http.StatusOK,
	dto.VerificationInvalidCode:     http.StatusNotFound,
	dto.VerificationBadRequest:      http.StatusBadRequest,
	dto.VerificationError:           http.StatusInternalServerError,
}

// writeStatus 成功时 code=0，否则 code=CodeAccountStatus
func writeStatus(c *gin.Context, httpStatus int, success bool, status string, data interface{}) {
	if success {
		response.Status(c, httpStatus, 0, "success", data)
		return
	}
	response.Status(c, httpStatus, response.CodeAccountStatus, status, data)
}

// ═══════════════════════════════════════════════════════════
// SignUp
// ═══════════════════════════════════════════════════════════

// SignUpStudent 学生注册
// POST /api/v1/students/sign-up
func (h *AccountHandler) SignUpStudent(c *gin.Context) {
	var req dto.StudentSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		h.writeSignUp(c, &dto.SignUpResponse{Status: dto.SignUpBadRequest}, nil)
		return
	}
	resp, err := h.accountSvc.SignUpStudent(c.Request.Context(), &req)
	h.writeSignUp(c, resp, err)
}

// SignUpEducator 教师注册
// POST /api/v1/educators/sign-up
func (h *AccountHandler) SignUpEducator(c *gin.Context) {
	var req dto.EducatorSignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		h.writeSignUp(c, &dto.SignUpResponse{Status: dto.SignUpBadRequest}, nil)
		return
	}
	resp, err := h.accountSvc.SignUpEducator(c.Request.Context(), &req)
	h.writeSignUp(c, resp, err)
}

func (h *AccountHandler) writeSignUp(c *gin.Context, resp *dto.SignUpResponse, err error) {
	if err != nil {
		requestLogger(c, h.logger).Error("注册失败", zap.Error(err))
		resp = &dto.SignUpResponse{Status: dto.SignUpError}
	}
	resp.Success = resp.Status.Success()
	writeStatus(c, signUpHTTPStatus[resp.Status], resp.Success, string(resp.Status), resp)
}

// ═══════════════════════════════════════════════════════════
// Login
// ═══════════════════════════════════════════════════════════

// LoginStudent 学生登录
// PUT /api/v1/students/login
func (h *AccountHandler) LoginStudent(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		h.writeLogin(c, &dto.LoginResponse{Status: dto.LoginBadRequest}, nil)
		return
	}
	resp, err := h.accountSvc.LoginStudent(c.Request.Context(), &req)
	h.writeLogin(c, resp, err)
}

// LoginEducator 教师登录
// PUT /api/v1/educators/login
func (h *AccountHandler) LoginEducator(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		h.writeLogin(c, &dto.LoginResponse{Status: dto.LoginBadRequest}, nil)
		return
	}
	resp, err := h.accountSvc.LoginEducator(c.Request.Context(), &req)
	h.writeLogin(c, resp, err)
}

func (h *AccountHandler) writeLogin(c *gin.Context, resp *dto.LoginResponse, err error) {
	if err != nil {
		requestLogger(c, h.logger).Error("登录失败", zap.Error(err))
		resp = &dto.LoginResponse{Status: dto.LoginError}
	}
	resp.Success = resp.Status.Success()
	writeStatus(c, loginHTTPStatus[resp.Status], resp.Success, string(resp.Status), resp)
}

// ═══════════════════════════════════════════════════════════
// Verify
// ═══════════════════════════════════════════════════════════

// VerifyStudent 学生邮箱验证
// POST /api/v1/students/verify/:code
func (h *AccountHandler) VerifyStudent(c *gin.Context) {
	resp, err := h.accountSvc.VerifyStudent(c.Request.Context(), c.Param("code"))
	h.writeVerification(c, resp, err)
}

// VerifyEducator 教师邮箱验证
// POST /api/v1/educators/verify/:code
func (h *AccountHandler) VerifyEducator(c *gin.Context) {
	resp, err := h.accountSvc.VerifyEducator(c.Request.Context(), c.Param("code"))
	h.writeVerification(c, resp, err)
}

func (h *AccountHandler) writeVerification(c *gin.Context, resp *dto.VerificationResponse, err error) {
	if err != nil {
		requestLogger(c, h.logger).Error("验证失败", zap.Error(err))
		resp = &dto.VerificationResponse{Status: dto.VerificationError}
	}
	resp.Success = resp.Status.Success()
	writeStatus(c, verificationHTTPStatus[resp.Status], resp.Success, string(resp.Status), resp)
}

// ═══════════════════════════════════════════════════════════
// List
// ═══════════════════════════════════════════════════════════

// ListStudents 分页查询学生
// GET /api/v1/students?page=1&page_size=100
func (h *AccountHandler) ListStudents(c *gin.Context) {
	var p dto.PaginationRequest
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "分页参数无效")
		return
	}
	list, err := h.accountSvc.ListStudents(c.Request.Context(), &p)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

// ListEducators 分页查询教师
// GET /api/v1/educators?page=1&page_size=100
func (h *AccountHandler) ListEducators(c *gin.Context) {
	var p dto.PaginationRequest
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "分页参数无效")
		return
	}
	list, err := h.accountSvc.ListEducators(c.Request.Context(), &p)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}

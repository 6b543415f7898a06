package dto

// ── 账号模块 DTO ──

// StudentSignUpRequest 学生注册请求
type StudentSignUpRequest struct {
	Username      string  `json:"username"       binding:"required,min=1,max=50"`
	Email         string  `json:"email"          binding:"required,email"`
	Password      string  `json:"password"       binding:"required,min=1,max=72"`
	Institution   *string `json:"institution"    binding:"omitempty,max=255"`
	Age           *int    `json:"age"            binding:"omitempty,min=0,max=150"`
	Gender        *string `json:"gender"         binding:"omitempty,max=32"`
	ClassroomCode *string `json:"classroom_code"` // 可选，无效时静默忽略
}

// EducatorSignUpRequest 教师注册请求
type EducatorSignUpRequest struct {
	FirstName   string  `json:"first_name"  binding:"required,max=100"`
	LastName    string  `json:"last_name"   binding:"required,max=100"`
	Email       string  `json:"email"       binding:"required,email"`
	Password    string  `json:"password"    binding:"required,min=1,max=72"`
	Institution *string `json:"institution" binding:"omitempty,max=255"`
	Age         *int    `json:"age"         binding:"omitempty,min=0,max=150"`
	Gender      *string `json:"gender"      binding:"omitempty,max=32"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ── 状态枚举 ──

// SignUpResult 注册结果
type SignUpResult string

const (
	SignUpOk          SignUpResult = "ok"
	SignUpEmailExists SignUpResult = "email_exists"
	SignUpBadRequest  SignUpResult = "bad_request"
	SignUpError       SignUpResult = "error"
)

// Success 仅 ok 视为成功
func (r SignUpResult) Success() bool { return r == SignUpOk }

// LoginResult 登录结果
type LoginResult string

const (
	LoginOk                LoginResult = "ok"
	LoginEmailNotExist     LoginResult = "email_not_exist"
	LoginIncorrectPassword LoginResult = "incorrect_password"
	LoginNotVerified       LoginResult = "not_verified"
	LoginBadRequest        LoginResult = "bad_request"
	LoginError             LoginResult = "error"
)

// Success 仅 ok 视为成功
func (r LoginResult) Success() bool { return r == LoginOk }

// VerificationResult 验证结果
type VerificationResult string

const (
	VerificationOk              VerificationResult = "ok"
	VerificationAlreadyVerified VerificationResult = "already_verified"
	VerificationInvalidCode     VerificationResult = "invalid_code"
	VerificationBadRequest      VerificationResult = "bad_request"
	VerificationError           VerificationResult = "error"
)

// Success ok 与 already_verified 都表示账号已处于验证状态
func (r VerificationResult) Success() bool {
	return r == VerificationOk || r == VerificationAlreadyVerified
}

// ── 响应 ──

// SignUpResponse 注册响应
type SignUpResponse struct {
	Status  SignUpResult `json:"status"`
	Success bool         `json:"success"`
	ID      uint         `json:"id,omitempty"`
}

// LoginResponse 登录响应（仅 ok 时携带 id）
type LoginResponse struct {
	Status  LoginResult `json:"status"`
	Success bool        `json:"success"`
	ID      *uint       `json:"id,omitempty"`
}

// VerificationResponse 验证响应
type VerificationResponse struct {
	Status  VerificationResult `json:"status"`
	Success bool               `json:"success"`
}

// [自证通过] internal/dto/auth.go

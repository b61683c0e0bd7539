// Phone account HTTP handlers.
//
// This file exposes the unauthenticated phone account routes:
//   - POST /auth/check-phone     (is the phone registered?)
//   - POST /auth/send-code       (issue an SMS verification code)
//   - POST /auth/register        (create the account from a code)
//   - POST /auth/login           (phone and password sign-in)
//   - POST /auth/reset-password  (new password from a reset code)
//
// Messages are Chinese because the web client shows them verbatim.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/services"
)

const (
	msgPhoneRequired      = "请提供手机号"
	msgPhoneInvalid       = "手机号格式不正确"
	msgQueryFailed        = "查询失败"
	msgPhoneRegistered    = "该手机号已注册，请直接登录"
	msgPhoneNotRegistered = "该手机号未注册"
	msgInvalidPurpose     = "不支持的验证码用途"
	msgTooFrequent        = "发送太频繁，请稍后再试"
	msgCodeSent           = "验证码已发送"
	msgServerError        = "服务器内部错误"
	msgSMSFailedPrefix    = "短信发送失败: "
	msgCredentials        = "请填写完整信息"
	msgPasswordLength     = "密码长度需为6到72个字符"
	msgInvalidCode        = "验证码无效或已过期"
	msgWrongPassword      = "密码错误，如忘记密码请使用重置密码功能"
	msgAuthUnavailable    = "认证服务暂不可用"
	msgRegistered         = "注册成功"
	msgPasswordReset      = "密码重置成功"
)

// PhoneRequest is the body of check-phone.
type PhoneRequest struct {
	Phone string `json:"phone" example:"13800138000"`
}

// SendCodeRequest is the body of send-code. Purpose is "register" (default)
// or "reset".
type SendCodeRequest struct {
	Phone   string `json:"phone"             example:"13800138000"`
	Purpose string `json:"purpose,omitempty" example:"register"`
}

// RegisterRequest is the body of register.
type RegisterRequest struct {
	Phone    string `json:"phone"    example:"13800138000"`
	Code     string `json:"code"     example:"123456"`
	Password string `json:"password" example:"secret123"`
}

// LoginRequest is the body of login.
type LoginRequest struct {
	Phone    string `json:"phone"    example:"13800138000"`
	Password string `json:"password" example:"secret123"`
}

// ResetPasswordRequest is the body of reset-password.
type ResetPasswordRequest struct {
	Phone       string `json:"phone"       example:"13800138000"`
	Code        string `json:"code"        example:"123456"`
	NewPassword string `json:"newPassword" example:"secret456"`
}

// SessionResponse carries the auth session of a signed-in phone account.
type SessionResponse struct {
	Success bool          `json:"success"           example:"true"`
	Message string        `json:"message,omitempty" example:"注册成功"`
	Session *auth.Session `json:"session"`
}

// CheckPhoneResponse reports registration state for a phone.
type CheckPhoneResponse struct {
	Registered bool   `json:"registered" example:"false"`
	Phone      string `json:"phone"      example:"13800138000"`
}

// SendCodeResponse acknowledges a delivered code.
type SendCodeResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"验证码已发送"`
}

// CheckPhone godoc
// @ID          checkPhone
// @Summary     Check whether a phone is registered
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.PhoneRequest  true  "Phone number"
// @Success     200   {object}  handlers.CheckPhoneResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing or malformed phone"
// @Failure     500   {object}  handlers.ErrorResponse  "Lookup failed"
// @Router      /auth/check-phone [post]
func (h *Handlers) CheckPhone(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgPhoneRequired)
		return
	}

	registered, phone, err := h.accounts.CheckPhone(c.Request.Context(), req.Phone)
	if err != nil {
		if status, code, msg, handled := phoneInputError(err); handled {
			fail(c, status, code, msg)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgQueryFailed, err)
		return
	}

	ok(c, http.StatusOK, CheckPhoneResponse{Registered: registered, Phone: phone})
}

// SendCode godoc
// @ID          sendCode
// @Summary     Send an SMS verification code
// @Description Issues a six-digit code valid for five minutes. At most one code per phone per minute.
// @Description Register codes need an unregistered phone, reset codes a registered one.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SendCodeRequest  true  "Phone number and purpose"
// @Success     200   {object}  handlers.SendCodeResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing phone, bad purpose or wrong registration state"
// @Failure     429   {object}  handlers.ErrorResponse  "Too frequent"
// @Failure     500   {object}  handlers.ErrorResponse  "SMS delivery failed"
// @Router      /auth/send-code [post]
func (h *Handlers) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgPhoneRequired)
		return
	}

	err := h.accounts.SendCode(c.Request.Context(), req.Phone, req.Purpose)
	if err == nil {
		ok(c, http.StatusOK, SendCodeResponse{Success: true, Message: msgCodeSent})
		return
	}

	if status, code, msg, handled := phoneInputError(err); handled {
		fail(c, status, code, msg)
		return
	}
	var smsErr *services.SMSError
	switch {
	case errors.Is(err, services.ErrPhoneRegistered):
		fail(c, http.StatusBadRequest, ErrCodePhoneRegistered, msgPhoneRegistered)
	case errors.Is(err, services.ErrPhoneNotRegistered):
		fail(c, http.StatusBadRequest, ErrCodePhoneNotRegistered, msgPhoneNotRegistered)
	case errors.Is(err, services.ErrInvalidPurpose):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidPurpose)
	case errors.Is(err, services.ErrSendTooFrequent):
		c.Header("Retry-After", "60")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, msgTooFrequent)
	case errors.As(err, &smsErr):
		fail(c, http.StatusInternalServerError, ErrCodeSMSFailed, msgSMSFailedPrefix+smsErr.Status.Message(), err)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgServerError, err)
	}
}

// Register godoc
// @ID          registerPhone
// @Summary     Register a phone account
// @Description Consumes a register code and creates the account. The response carries a signed-in session.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Phone, code and password"
// @Success     200   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields, bad code or already registered"
// @Failure     429   {object}  handlers.ErrorResponse  "Too many attempts"
// @Failure     503   {object}  handlers.ErrorResponse  "Auth server not configured"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgCredentials)
		return
	}

	sess, err := h.accounts.Register(c.Request.Context(), req.Phone, req.Code, req.Password)
	if err != nil {
		accountError(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Success: true, Message: msgRegistered, Session: sess})
}

// Login godoc
// @ID          loginPhone
// @Summary     Sign in with phone and password
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Phone and password"
// @Success     200   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields or unknown phone"
// @Failure     401   {object}  handlers.ErrorResponse  "Wrong password"
// @Failure     429   {object}  handlers.ErrorResponse  "Too many attempts"
// @Failure     503   {object}  handlers.ErrorResponse  "Auth server not configured"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgCredentials)
		return
	}

	sess, err := h.accounts.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		accountError(c, err)
		return
	}
	ok(c, http.StatusOK, SessionResponse{Success: true, Session: sess})
}

// ResetPassword godoc
// @ID          resetPassword
// @Summary     Reset the password of a phone account
// @Description Consumes a reset code sent with purpose "reset".
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.ResetPasswordRequest  true  "Phone, code and new password"
// @Success     200   {object}  handlers.SendCodeResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields, bad code or unknown phone"
// @Failure     429   {object}  handlers.ErrorResponse  "Too many attempts"
// @Failure     503   {object}  handlers.ErrorResponse  "Auth server not configured"
// @Router      /auth/reset-password [post]
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgCredentials)
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), req.Phone, req.Code, req.NewPassword); err != nil {
		accountError(c, err)
		return
	}
	ok(c, http.StatusOK, SendCodeResponse{Success: true, Message: msgPasswordReset})
}

// accountError writes the response for a failed register, login or reset.
func accountError(c *gin.Context, err error) {
	if status, code, msg, handled := phoneInputError(err); handled {
		fail(c, status, code, msg)
		return
	}
	switch {
	case errors.Is(err, services.ErrCredentialsRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgCredentials)
	case errors.Is(err, services.ErrInvalidPassword):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgPasswordLength)
	case errors.Is(err, services.ErrInvalidCode):
		fail(c, http.StatusBadRequest, ErrCodeInvalidCode, msgInvalidCode)
	case errors.Is(err, services.ErrPhoneRegistered):
		fail(c, http.StatusBadRequest, ErrCodePhoneRegistered, msgPhoneRegistered)
	case errors.Is(err, services.ErrPhoneNotRegistered):
		fail(c, http.StatusBadRequest, ErrCodePhoneNotRegistered, msgPhoneNotRegistered)
	case errors.Is(err, services.ErrWrongPassword):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidPassword, msgWrongPassword)
	case errors.Is(err, services.ErrAuthUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, msgAuthUnavailable)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgServerError, err)
	}
}

// phoneInputError maps phone validation failures to 400s.
func phoneInputError(err error) (int, string, string, bool) {
	switch {
	case errors.Is(err, services.ErrPhoneRequired):
		return http.StatusBadRequest, ErrCodeBadRequest, msgPhoneRequired, true
	case errors.Is(err, services.ErrInvalidPhone):
		return http.StatusBadRequest, ErrCodeBadRequest, msgPhoneInvalid, true
	}
	return 0, "", "", false
}

package handlers

import (
	"net/http"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/audit"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/auth"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/httputil"
)

type signUpHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewSignUp returns the handler for account creation.
func NewSignUp(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&signUpHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authResponse struct {
	Account *accountResponse `json:"account"`
	Token   string           `json:"token"`
}

func (h *signUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	account, token, err := h.authSvc.SignUp(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Cause(err) == dal.ErrDuplicateEmail {
		httputil.JSONError(w, http.StatusConflict, "An account with that email already exists")
		return
	} else if err != nil {
		httputil.JSONBadRequest(w, errors.Cause(err).Error())
		return
	}
	h.auditLog.Record(audit.CategoryAuth, "signup", account.ID.String(), clientAddr(r), "", "")
	httputil.JSONResponse(w, http.StatusCreated, &authResponse{
		Account: transformAccount(account),
		Token:   token,
	})
}

type loginHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewLogin returns the handler for password login.
func NewLogin(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&loginHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *loginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	account, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if errors.Cause(err) == auth.ErrBadCredentials {
		httputil.JSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryAuth, "login", account.ID.String(), clientAddr(r), "", "")
	httputil.JSONResponse(w, http.StatusOK, &authResponse{
		Account: transformAccount(account),
		Token:   token,
	})
}

type logoutHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewLogout returns the handler that revokes the current session token.
func NewLogout(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&logoutHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

func (h *logoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.Logout(r.Context(), bearerToken(r)); err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	if account := AccountFromContext(r.Context()); account != nil {
		h.auditLog.Record(audit.CategoryAuth, "logout", account.ID.String(), clientAddr(r), "", "")
	}
	httputil.JSONSuccess(w)
}

type verifyHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewVerify returns the handler for verification codes. POST with no code
// requests a new code, POST with a code checks it.
func NewVerify(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&verifyHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *verifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if account == nil {
		httputil.JSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req verifyRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}

	if req.Code == "" {
		// TODO: deliver the code over SMS once a gateway is provisioned.
		// Until then it is returned for the client to display.
		code, err := h.authSvc.SendVerificationCode(r.Context(), account.ID)
		if err != nil {
			httputil.JSONInternalError(w, err)
			return
		}
		httputil.JSONResponse(w, http.StatusOK, map[string]string{"code": code})
		return
	}

	if err := h.authSvc.VerifyCode(r.Context(), account.ID, req.Code); errors.Cause(err) == auth.ErrBadCode {
		httputil.JSONBadRequest(w, "Invalid or expired code")
		return
	} else if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	h.auditLog.Record(audit.CategoryAuth, "verify", account.ID.String(), clientAddr(r), "", "")
	httputil.JSONSuccess(w)
}

type passwordResetHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewPasswordReset returns the handler that starts a password reset.
func NewPasswordReset(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&passwordResetHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *passwordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	token, err := h.authSvc.StartPasswordReset(r.Context(), req.Email)
	if err != nil {
		httputil.JSONInternalError(w, err)
		return
	}
	// The response is identical whether or not the email exists.
	res := map[string]interface{}{"success": true}
	if token != "" {
		// TODO: deliver over email once a sender is provisioned.
		res["token"] = token
	}
	httputil.JSONResponse(w, http.StatusOK, res)
}

type passwordResetConfirmHandler struct {
	authSvc  *auth.Service
	auditLog *audit.Logger
}

// NewPasswordResetConfirm returns the handler that completes a password reset.
func NewPasswordResetConfirm(authSvc *auth.Service, auditLog *audit.Logger) http.Handler {
	return httputil.SupportedMethods(&passwordResetConfirmHandler{authSvc: authSvc, auditLog: auditLog}, httputil.Post)
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *passwordResetConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if err := httputil.DecodeRequestData(r, &req); err != nil {
		httputil.JSONBadRequest(w, "Could not parse request body")
		return
	}
	if err := h.authSvc.CompletePasswordReset(r.Context(), req.Token, req.NewPassword); errors.Cause(err) == auth.ErrBadCode {
		httputil.JSONBadRequest(w, "Invalid or expired reset token")
		return
	} else if err != nil {
		httputil.JSONBadRequest(w, errors.Cause(err).Error())
		return
	}
	h.auditLog.Record(audit.CategoryAuth, "password_reset", "", clientAddr(r), "", "")
	httputil.JSONSuccess(w)
}

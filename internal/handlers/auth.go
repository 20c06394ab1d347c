package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/service"
)

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type completeProfileRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":               u.ID.Hex(),
		"phone":            u.Phone,
		"name":             u.Name,
		"email":            u.Email,
		"isPhoneVerified":  u.IsPhoneVerified,
		"profileCompleted": u.ProfileCompleted,
	}
}

func SendOTP(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/send-otp"
		defer handlePanic(c, log, route)

		var req sendOTPRequest
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := auth.SendOTP(ctx, req.Phone)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		body := gin.H{
			"success":   true,
			"message":   "OTP sent successfully",
			"isNewUser": res.IsNewUser,
			"expiresAt": res.ExpiresAt,
		}
		if res.DebugOTP != "" {
			body["debugOtp"] = res.DebugOTP
		}
		c.JSON(http.StatusOK, body)
	}
}

func VerifyOTP(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/verify-otp"
		defer handlePanic(c, log, route)

		var req verifyOTPRequest
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		session, err := auth.VerifyOTP(ctx, req.Phone, req.OTP)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		message := "Login successful"
		if session.RequiresProfileCompletion {
			message = "Please complete your profile"
		}
		c.JSON(http.StatusOK, gin.H{
			"success":                   true,
			"message":                   message,
			"token":                     session.Token,
			"userId":                    session.User.ID.Hex(),
			"user":                      userPayload(session.User),
			"requiresProfileCompletion": session.RequiresProfileCompletion,
		})
	}
}

func CompleteProfile(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/complete-profile"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		var req completeProfileRequest
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		if req.ID != "" && req.ID != userID.Hex() {
			respondWithError(c, log, route, apperr.Unauthorized("Token does not belong to this user"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		session, err := auth.CompleteProfile(ctx, userID, req.Name, req.Email)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Profile completed successfully",
			"token":   session.Token,
			"user":    userPayload(session.User),
		})
	}
}

// GetMe answers from the user loaded by middleware.UserAuth.
func GetMe(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/auth/me"
		defer handlePanic(c, log, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, log, route, apperr.Unauthorized("No token provided, access denied"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
	}
}

// Package auth 实现卖家注册与登录。
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sellerhub/internal/model"
	"sellerhub/internal/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const passwordLength = 16

// Handler 提供注册与登录接口。
type Handler struct {
	db        *gorm.DB
	jwtSecret []byte
	mailer    *notify.EmailNotifier
	logger    *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(db *gorm.DB, jwtSecret string, mailer *notify.EmailNotifier, logger *slog.Logger) *Handler {
	return &Handler{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		mailer:    mailer,
		logger:    logger,
	}
}

type registerRequest struct {
	CompanyEmail       string `json:"company_email" binding:"required,email"`
	Company            string `json:"company" binding:"required"`
	CompanyDescription string `json:"company_description"`
	Country            string `json:"country"`
	SiteName           string `json:"site_name"`
}

type registerResponse struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type customClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register 注册卖家并下发初始密码。
//
// 已存在的账号会被重新启用并重置密码；新账号的登录身份与卖家档案
// 在同一事务中创建，任何一步失败都整体回滚，不留下半套状态。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.CompanyEmail))

	password, err := randomString(passwordLength)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("generate password failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user model.User
		found := tx.Where("email = ?", email).First(&user).Error
		if found == nil {
			// 重新注册：启用账号并重置密码
			user.Enabled = true
			user.Password = string(hash)
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
			return tx.Model(&model.Seller{}).
				Where("user_id = ?", user.ID).
				Update("enabled", true).Error
		}
		if !errors.Is(found, gorm.ErrRecordNotFound) {
			return found
		}

		user = model.User{
			Email:    email,
			Password: string(hash),
			Role:     "seller",
			Enabled:  true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		seller := model.Seller{
			UserID:             user.ID,
			Email:              email,
			Company:            req.Company,
			CompanyDescription: req.CompanyDescription,
			Country:            req.Country,
			SiteName:           req.SiteName,
			Enabled:            true,
			Activity: []model.ActivityEntry{
				{Type: "Created"},
			},
		}
		return tx.Create(&seller).Error
	})
	if err != nil {
		// 服务端留全量诊断，调用方只看到不透明的失败
		if h.logger != nil {
			h.logger.Error("registration failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendCredentials(email, password); err != nil && h.logger != nil {
			h.logger.Warn("send credentials failed", slog.String("email", email), slog.String("error", err.Error()))
		}
	}

	if h.logger != nil {
		h.logger.Info("seller registered", slog.String("email", email), slog.String("company", req.Company))
	}
	c.JSON(http.StatusOK, registerResponse{Email: email, Password: password})
}

// Login 校验凭据并返回 JWT。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	var user model.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.issueToken(user.ID, user.Email, user.Role)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	if h.logger != nil {
		h.logger.Info("seller logged in", slog.String("email", email), slog.String("role", user.Role))
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) issueToken(userID uint, email, role string) (string, error) {
	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
		Role:  role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// randomString 生成初始密码。熵源不可用时必须失败，绝不退回可预测的值。
func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

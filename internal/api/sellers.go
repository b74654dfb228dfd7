package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sellerhub/internal/curation"
	"sellerhub/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// sellerProfile 卖家档案的对外结构，活动记录附带人类可读的时间。
type sellerProfile struct {
	Email              string            `json:"email"`
	Company            string            `json:"company"`
	CompanyDescription string            `json:"company_description"`
	Country            string            `json:"country"`
	SiteName           string            `json:"site_name"`
	CreatedAt          time.Time         `json:"created_at"`
	Activity           []activityDisplay `json:"activity"`
}

type activityDisplay struct {
	Type       string    `json:"type"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
	PrettyDate string    `json:"pretty_date"`
}

type sellerPageInfo struct {
	Profile sellerProfile          `json:"profile"`
	Items   []curation.ItemDetails `json:"items"`
}

// handleSellerPageInfo 返回卖家主页所需的档案与商品。
//
// GET /sellers/page-info?seller=a@b.com 或 ?company=Acme
// 两个参数都缺失时报参数错误，给出 company 时按公司名解析卖家。
func (s *Server) handleSellerPageInfo(c *gin.Context) {
	sellerEmail := c.Query("seller")
	company := c.Query("company")
	if sellerEmail == "" && company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either seller or company is required"})
		return
	}

	var seller model.Seller
	query := s.db.WithContext(c.Request.Context()).Preload("Activity")
	if sellerEmail != "" {
		query = query.Where("email = ?", sellerEmail)
	} else {
		query = query.Where("company = ?", company)
	}
	if err := query.First(&seller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "seller not found"})
			return
		}
		s.logger.Error("load seller failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load seller failed"})
		return
	}

	items, err := s.feed.QueryItems(c.Request.Context(), "", seller.Email, nil)
	if err != nil {
		s.writeError(c, err, "load seller items failed")
		return
	}

	c.JSON(http.StatusOK, sellerPageInfo{
		Profile: toSellerProfile(seller),
		Items:   items,
	})
}

// handleSellerProfile 返回卖家档案，默认是会话用户自己的。
//
// GET /sellers/profile?seller=...（指定他人需管理员）
func (s *Server) handleSellerProfile(c *gin.Context) {
	email, ok := s.resolveSeller(c)
	if !ok {
		return
	}

	var seller model.Seller
	err := s.db.WithContext(c.Request.Context()).
		Preload("Activity").
		Where("email = ?", email).
		First(&seller).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "seller not found"})
			return
		}
		s.logger.Error("load profile failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}

	c.JSON(http.StatusOK, toSellerProfile(seller))
}

type updateProfileRequest struct {
	CompanyDescription *string `json:"company_description"`
	Country            *string `json:"country"`
	SiteName           *string `json:"site_name"`
}

// handleUpdateProfile 更新会话用户自己的档案。
//
// PATCH /profile
// 只有本人能改自己的档案；身份来自 JWT，不接受请求体指定卖家。
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.CompanyDescription != nil {
		updates["company_description"] = *req.CompanyDescription
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.SiteName != nil {
		updates["site_name"] = *req.SiteName
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updates"})
		return
	}

	email := getUserEmail(c)
	result := s.db.WithContext(c.Request.Context()).
		Model(&model.Seller{}).
		Where("email = ?", email).
		Updates(updates)
	if result.Error != nil {
		s.logger.Error("update profile failed", slog.String("error", result.Error.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "seller not found"})
		return
	}

	if _, err := s.activityLog.AppendSellerActivity(c.Request.Context(), email, "Updated profile"); err != nil {
		s.logger.Warn("append profile activity failed", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func toSellerProfile(seller model.Seller) sellerProfile {
	activity := make([]activityDisplay, 0, len(seller.Activity))
	for _, entry := range seller.Activity {
		activity = append(activity, activityDisplay{
			Type:       entry.Type,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt,
			PrettyDate: humanize.Time(entry.CreatedAt),
		})
	}
	return sellerProfile{
		Email:              seller.Email,
		Company:            seller.Company,
		CompanyDescription: seller.CompanyDescription,
		Country:            seller.Country,
		SiteName:           seller.SiteName,
		CreatedAt:          seller.CreatedAt,
		Activity:           activity,
	}
}

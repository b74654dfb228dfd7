package api

import (
	"net/http"

	"sellerhub/internal/curation"
	"sellerhub/internal/model"

	"github.com/gin-gonic/gin"
)

// handleRecordView 记录一次商品浏览。
//
// POST /items/:code/view
func (s *Server) handleRecordView(c *gin.Context) {
	code := c.Param("code")
	if _, err := s.activityLog.Record(c.Request.Context(), model.LogTypeItemView, code, getUserEmail(c), false); err != nil {
		s.writeError(c, err, "record view failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": code})
}

// handleSaveItem 收藏商品。重复收藏不报错，保持幂等。
func (s *Server) handleSaveItem(c *gin.Context) {
	code := c.Param("code")
	if _, err := s.activityLog.Save(c.Request.Context(), code, getUserEmail(c)); err != nil {
		s.writeError(c, err, "save item failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": code})
}

// handleUnsaveItem 取消收藏。未收藏过也视为成功。
func (s *Server) handleUnsaveItem(c *gin.Context) {
	code := c.Param("code")
	if _, err := s.activityLog.Unsave(c.Request.Context(), code, getUserEmail(c)); err != nil {
		s.writeError(c, err, "unsave item failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsaved": code})
}

// handleSavedItems 返回会话用户收藏的商品详情列表。
func (s *Server) handleSavedItems(c *gin.Context) {
	email := getUserEmail(c)
	codes, err := s.activityLog.SavedItemCodes(c.Request.Context(), email)
	if err != nil {
		s.writeError(c, err, "list saved items failed")
		return
	}
	if len(codes) == 0 {
		c.JSON(http.StatusOK, []curation.ItemDetails{})
		return
	}

	items, err := s.feed.QueryItems(c.Request.Context(), "", "", []curation.Filter{
		{Field: "code", Op: curation.OpIn, Values: codes},
	})
	if err != nil {
		s.writeError(c, err, "list saved items failed")
		return
	}
	c.JSON(http.StatusOK, items)
}

type addActivityRequest struct {
	Details string `json:"details" binding:"required"`
}

// handleAddActivity 在卖家档案上追加一条活动记录。
//
// POST /activity
func (s *Server) handleAddActivity(c *gin.Context) {
	var req addActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := s.activityLog.AppendSellerActivity(c.Request.Context(), getUserEmail(c), req.Details)
	if err != nil {
		s.writeError(c, err, "add activity failed")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

package api

import (
	"net/http"

	"sellerhub/internal/curation"
	"sellerhub/internal/model"
	"sellerhub/internal/review"

	"github.com/gin-gonic/gin"
)

// handleHomepage 返回首页聚合内容。
//
// GET /homepage?country=India
func (s *Server) handleHomepage(c *gin.Context) {
	feed, err := s.feed.HomepageFeed(c.Request.Context(), c.Query("country"))
	if err != nil {
		s.writeError(c, err, "load homepage failed")
		return
	}
	c.JSON(http.StatusOK, feed)
}

// handleQueryItems 按关键字/卖家/过滤器检索商品。
//
// GET /items?keyword=...&seller=...&filters=[{"field":"country","op":"eq","value":"India"}]
func (s *Server) handleQueryItems(c *gin.Context) {
	filters, err := curation.ParseFilters(c.Query("filters"))
	if err != nil {
		s.writeError(c, err, "invalid filters")
		return
	}

	items, err := s.feed.QueryItems(c.Request.Context(), c.Query("keyword"), c.Query("seller"), filters)
	if err != nil {
		s.writeError(c, err, "query items failed")
		return
	}
	c.JSON(http.StatusOK, items)
}

// handleItemDetails 返回单个商品详情（含浏览次数）。
//
// 商品不存在时返回 null，而不是 404——前端据此判断展示占位页。
func (s *Server) handleItemDetails(c *gin.Context) {
	code := c.Param("code")
	item, err := s.feed.ItemByCode(c.Request.Context(), code)
	if err != nil {
		s.writeError(c, err, "load item failed")
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	views, err := s.activityLog.CountViews(c.Request.Context(), code)
	if err != nil {
		s.writeError(c, err, "count views failed")
		return
	}
	item.ViewCount = views
	c.JSON(http.StatusOK, item)
}

// handleListCategories 返回某一父分类下的子分类，默认取根分类。
//
// GET /categories?parent=Electronics
func (s *Server) handleListCategories(c *gin.Context) {
	parent := c.Query("parent")
	if parent == "" {
		parent = model.RootCategory
	}
	categories, err := s.feed.Categories(c.Request.Context(), parent)
	if err != nil {
		s.writeError(c, err, "list categories failed")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// handleListReviews 返回商品的全部评论，新的在前。
func (s *Server) handleListReviews(c *gin.Context) {
	reviews, err := s.reviews.List(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.writeError(c, err, "list reviews failed")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

type addReviewRequest struct {
	Subject string `json:"subject" binding:"required"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

// handleAddReview 以会话用户身份添加评论。
//
// POST /items/:code/reviews
func (s *Server) handleAddReview(c *gin.Context) {
	var req addReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := s.reviews.Add(c.Request.Context(), c.Param("code"), review.Input{
		AuthorEmail: getUserEmail(c),
		Subject:     req.Subject,
		Content:     req.Content,
		Rating:      req.Rating,
	})
	if err != nil {
		s.writeError(c, err, "add review failed")
		return
	}
	c.JSON(http.StatusCreated, stored)
}

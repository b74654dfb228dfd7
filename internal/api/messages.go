package api

import (
	"net/http"

	"sellerhub/internal/messaging"

	"github.com/gin-gonic/gin"
)

// handleMessagePartners 返回与会话用户有过往来的卖家列表。
//
// GET /messages/partners
func (s *Server) handleMessagePartners(c *gin.Context) {
	partners, err := s.messages.ConversationPartners(c.Request.Context(), getUserEmail(c))
	if err != nil {
		s.writeError(c, err, "list partners failed")
		return
	}
	c.JSON(http.StatusOK, partners)
}

// handleListMessages 返回会话用户与某个卖家围绕某个商品的双向消息。
//
// GET /messages?counterpart=...&item=...&order=desc&limit=50
func (s *Server) handleListMessages(c *gin.Context) {
	order := c.Query("order")
	if order == "" {
		order = messaging.OrderAsc
	}
	limit := parseQueryInt(c, "limit", s.cfg.App.MessagePageLimit)

	msgs, err := s.messages.ListMessages(
		c.Request.Context(),
		getUserEmail(c),
		c.Query("counterpart"),
		c.Query("item"),
		order,
		limit,
	)
	if err != nil {
		s.writeError(c, err, "list messages failed")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// handleBuyingThreads 返回卖家作为买方的会话线程。
//
// GET /messages/buying?seller=...（seller 缺省为会话用户；指定他人需管理员）
func (s *Server) handleBuyingThreads(c *gin.Context) {
	seller, ok := s.resolveSeller(c)
	if !ok {
		return
	}
	threads, err := s.messages.BuyingThreads(c.Request.Context(), seller)
	if err != nil {
		s.writeError(c, err, "list buying threads failed")
		return
	}
	c.JSON(http.StatusOK, threads)
}

// handleSellingThreads 返回卖家作为卖方收到消息的会话线程。
//
// GET /messages/selling?seller=...（seller 缺省为会话用户；指定他人需管理员）
func (s *Server) handleSellingThreads(c *gin.Context) {
	seller, ok := s.resolveSeller(c)
	if !ok {
		return
	}
	threads, err := s.messages.SellingThreads(c.Request.Context(), seller)
	if err != nil {
		s.writeError(c, err, "list selling threads failed")
		return
	}
	c.JSON(http.StatusOK, threads)
}

type sendMessageRequest struct {
	From     string `json:"from" binding:"required,email"`
	To       string `json:"to" binding:"required,email"`
	Content  string `json:"content" binding:"required"`
	ItemCode string `json:"item_code" binding:"required"`
}

// handleSendMessage 发送一条消息。
//
// 发送人必须是会话用户本人；管理员可以代任何卖家发送。
func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := s.messages.Send(c.Request.Context(), getCaller(c), req.From, req.To, req.Content, req.ItemCode)
	if err != nil {
		s.writeError(c, err, "send message failed")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

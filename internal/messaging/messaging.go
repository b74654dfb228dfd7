// Package messaging 实现卖家之间围绕商品的站内消息，
// 以及由消息聚合出的会话视图（对端列表、买方/卖方线程）。
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sellerhub/internal/curation"
	"sellerhub/internal/hub"
	"sellerhub/internal/model"
	"sellerhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// 消息排序方向。
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Partner 是与某卖家有过消息往来的对端。
type Partner struct {
	Email   string `json:"email"`
	Company string `json:"company"`
}

// ThreadMessage 是线程视图里的一条消息，带上对端（买方）的身份。
type ThreadMessage struct {
	model.Message
	BuyerEmail string `json:"buyer_email"`
	Buyer      string `json:"buyer"`
}

// Thread 是按商品聚合的会话：买方线程带最近一条消息，卖方线程带全部收到的消息。
type Thread struct {
	curation.ItemDetails
	RecentMessage    *model.Message  `json:"recent_message,omitempty"`
	ReceivedMessages []ThreadMessage `json:"received_messages,omitempty"`
}

// Service 封装消息读写与会话聚合。
type Service struct {
	db     *gorm.DB
	items  *curation.Service
	logger *slog.Logger
}

func NewService(db *gorm.DB, items *curation.Service, logger *slog.Logger) *Service {
	return &Service{db: db, items: items, logger: logger}
}

// ConversationPartners 返回与 sellerEmail 有过任一方向消息往来的卖家，
// 去重、排除自己，并带上公司名。
func (s *Service) ConversationPartners(ctx context.Context, sellerEmail string) ([]Partner, error) {
	var rows []model.Message
	if err := s.db.WithContext(ctx).
		Select("sender", "receiver").
		Where("sender = ? OR receiver = ?", sellerEmail, sellerEmail).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load message endpoints: %w", err)
	}

	emails := CollectCounterparts(rows, sellerEmail)
	if len(emails) == 0 {
		return []Partner{}, nil
	}

	var sellers []model.Seller
	if err := s.db.WithContext(ctx).
		Where("email IN ?", emails).
		Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("load partners: %w", err)
	}
	companies := make(map[string]string, len(sellers))
	for _, sel := range sellers {
		companies[sel.Email] = sel.Company
	}

	partners := make([]Partner, 0, len(emails))
	for _, email := range emails {
		partners = append(partners, Partner{Email: email, Company: companies[email]})
	}
	return partners, nil
}

// CollectCounterparts 从消息端点行中提取对端邮箱：排除 self，
// 去重并保持首次出现的顺序。
func CollectCounterparts(rows []model.Message, self string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, row := range rows {
		for _, email := range []string{row.Sender, row.Receiver} {
			if email == self || email == "" {
				continue
			}
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	return out
}

// NormalizeOrder 校验排序方向，空值取 asc。
func NormalizeOrder(order string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	default:
		return "", hub.Validationf("invalid order %q", order)
	}
}

// ListMessages 返回 caller 与 counterpart 之间围绕某商品的消息。
// 过滤条件对两个方向对称，因此任一参与方发起都得到同一集合。
func (s *Service) ListMessages(ctx context.Context, caller, counterpart, itemCode, order string, limit int) ([]model.Message, error) {
	dir, err := NormalizeOrder(order)
	if err != nil {
		return nil, err
	}

	pair := []string{caller, counterpart}
	q := s.db.WithContext(ctx).
		Where("sender IN ?", pair).
		Where("receiver IN ?", pair).
		Where("item_code = ?", itemCode).
		Order("created_at " + strings.ToUpper(dir) + ", id " + strings.ToUpper(dir))
	if limit > 0 {
		q = q.Limit(limit)
	}

	messages := []model.Message{}
	if err := q.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// BuyingThreads 返回 sellerEmail 作为买方发起过消息、且商品属于别人的线程，
// 每个线程带最近一条消息。
func (s *Service) BuyingThreads(ctx context.Context, sellerEmail string) ([]Thread, error) {
	codes := []string{}
	if err := s.db.WithContext(ctx).Model(&model.Message{}).
		Distinct("messages.item_code").
		Joins("JOIN items ON items.code = messages.item_code").
		Where("messages.sender = ?", sellerEmail).
		Where("items.seller_email <> ?", sellerEmail).
		Pluck("messages.item_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("buying thread codes: %w", err)
	}
	if len(codes) == 0 {
		return []Thread{}, nil
	}

	items, err := s.items.QueryItems(ctx, "", "", []curation.Filter{
		{Field: "code", Op: curation.OpIn, Values: codes},
	})
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(items))
	for _, item := range items {
		recent, err := s.ListMessages(ctx, sellerEmail, item.SellerEmail, item.Code, OrderDesc, 1)
		if err != nil {
			return nil, err
		}
		thread := Thread{ItemDetails: item}
		if len(recent) > 0 {
			msg := recent[0]
			thread.RecentMessage = &msg
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// SellingThreads 返回 sellerEmail 收到过消息的商品线程，
// 每个线程带去重后的收到消息集合（最新在前），消息标注买方身份与公司。
func (s *Service) SellingThreads(ctx context.Context, sellerEmail string) ([]Thread, error) {
	codes := []string{}
	if err := s.db.WithContext(ctx).Model(&model.Message{}).
		Distinct("item_code").
		Where("receiver = ?", sellerEmail).
		Pluck("item_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("selling thread codes: %w", err)
	}
	if len(codes) == 0 {
		return []Thread{}, nil
	}

	items, err := s.items.QueryItems(ctx, "", "", []curation.Filter{
		{Field: "code", Op: curation.OpIn, Values: codes},
	})
	if err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(items))
	for _, item := range items {
		received := []model.Message{}
		if err := s.db.WithContext(ctx).
			Where("receiver = ? AND item_code = ?", sellerEmail, item.Code).
			Order("created_at DESC, id DESC").
			Find(&received).Error; err != nil {
			return nil, fmt.Errorf("received messages: %w", err)
		}

		annotated, err := s.annotateBuyers(ctx, received, sellerEmail)
		if err != nil {
			return nil, err
		}
		threads = append(threads, Thread{ItemDetails: item, ReceivedMessages: annotated})
	}
	return threads, nil
}

// annotateBuyers 为收到的消息标注对端（买方）邮箱和公司名。
func (s *Service) annotateBuyers(ctx context.Context, messages []model.Message, self string) ([]ThreadMessage, error) {
	emails := CollectCounterparts(messages, self)
	companies := make(map[string]string, len(emails))
	if len(emails) > 0 {
		var sellers []model.Seller
		if err := s.db.WithContext(ctx).
			Where("email IN ?", emails).
			Find(&sellers).Error; err != nil {
			return nil, fmt.Errorf("load buyers: %w", err)
		}
		for _, sel := range sellers {
			companies[sel.Email] = sel.Company
		}
	}

	out := make([]ThreadMessage, 0, len(messages))
	for _, msg := range messages {
		buyer := msg.Sender
		if buyer == self {
			buyer = msg.Receiver
		}
		out = append(out, ThreadMessage{
			Message:    msg,
			BuyerEmail: buyer,
			Buyer:      companies[buyer],
		})
	}
	return out, nil
}

// Send 以 from 的身份向 to 发送关于某商品的消息。
//
// caller 必须等于 from，除非 caller 是管理员；否则返回 PermissionError 且不落库。
func (s *Service) Send(ctx context.Context, caller hub.Caller, from, to, content, itemCode string) (*model.Message, error) {
	if caller.Email != from && !caller.IsAdmin() {
		return nil, hub.Permissionf("not permitted to send as %s", from)
	}
	if from == "" || to == "" {
		return nil, hub.Validationf("sender and receiver are required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, hub.Validationf("message content is required")
	}
	if itemCode == "" {
		return nil, hub.Validationf("item code is required")
	}

	msg := model.Message{
		Sender:   from,
		Receiver: to,
		ItemCode: itemCode,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	metrics.MessagesSentTotal.Inc()
	return &msg, nil
}

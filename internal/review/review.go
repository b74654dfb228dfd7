// Package review 实现商品评论：每个用户对同一商品最多一条。
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sellerhub/internal/hub"
	"sellerhub/internal/model"
	"sellerhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// Service 封装评论的读写。
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Input 是新评论的输入。
type Input struct {
	AuthorEmail string `json:"author_email"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	Rating      int    `json:"rating"`
}

// Add 为商品追加一条评论。
//
// 同一作者的第二条评论返回 DuplicateError，状态不变；
// 应用层先查后写的竞态由 (item_code, author_email) 唯一索引兜底。
func (s *Service) Add(ctx context.Context, itemCode string, in Input) (*model.Review, error) {
	if in.AuthorEmail == "" {
		return nil, hub.Validationf("review author is required")
	}

	var item model.Item
	err := s.db.WithContext(ctx).Where("code = ?", itemCode).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &hub.NotFoundError{Entity: "item", Key: itemCode}
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&model.Review{}).
		Where("item_code = ? AND author_email = ?", itemCode, in.AuthorEmail).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	if existing > 0 {
		metrics.ReviewsRejectedTotal.Inc()
		return nil, hub.Duplicatef("cannot add more than 1 review for the user %s", in.AuthorEmail)
	}

	review := model.Review{
		ItemCode:    itemCode,
		AuthorEmail: in.AuthorEmail,
		Subject:     in.Subject,
		Content:     in.Content,
		Rating:      in.Rating,
	}
	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			metrics.ReviewsRejectedTotal.Inc()
			return nil, hub.Duplicatef("cannot add more than 1 review for the user %s", in.AuthorEmail)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	return &review, nil
}

// List 返回商品的评论，最新的在前；没有评论时返回空列表。
func (s *Service) List(ctx context.Context, itemCode string) ([]model.Review, error) {
	reviews := []model.Review{}
	if err := s.db.WithContext(ctx).
		Where("item_code = ?", itemCode).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

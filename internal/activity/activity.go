// Package activity 实现只追加的事件日志与收藏开关。
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"sellerhub/internal/hub"
	"sellerhub/internal/model"
	"sellerhub/internal/pkg/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service 封装 LogEntry / SavedItem / 卖家活动日志的读写。
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Record 追加一条事件日志并返回落库后的条目（带 ID 和时间戳）。
func (s *Service) Record(ctx context.Context, logType, itemCode, actor string, flag bool) (*model.LogEntry, error) {
	entry := model.LogEntry{
		Type:     logType,
		ItemCode: itemCode,
		Actor:    actor,
		Flag:     flag,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("record %s: %w", logType, err)
	}
	if logType == model.LogTypeItemView {
		metrics.ItemViewsTotal.Inc()
	}
	return &entry, nil
}

// CountViews 返回商品的浏览事件数，没有记录时为 0。
func (s *Service) CountViews(ctx context.Context, itemCode string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.LogEntry{}).
		Where("type = ? AND item_code = ?", model.LogTypeItemView, itemCode).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count views: %w", err)
	}
	return count, nil
}

// Save 记录收藏事件并插入收藏行。重复收藏靠唯一索引 + 冲突忽略保证幂等。
func (s *Service) Save(ctx context.Context, itemCode, actor string) (*model.LogEntry, error) {
	entry, err := s.Record(ctx, model.LogTypeItemSave, itemCode, actor, true)
	if err != nil {
		return nil, err
	}

	saved := model.SavedItem{SellerEmail: actor, ItemCode: itemCode}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&saved).Error; err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return entry, nil
}

// Unsave 记录取消收藏事件并删除收藏行，行不存在时不报错。
func (s *Service) Unsave(ctx context.Context, itemCode, actor string) (*model.LogEntry, error) {
	entry, err := s.Record(ctx, model.LogTypeItemSave, itemCode, actor, false)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("seller_email = ? AND item_code = ?", actor, itemCode).
		Delete(&model.SavedItem{}).Error; err != nil {
		return nil, fmt.Errorf("unsave item: %w", err)
	}
	return entry, nil
}

// SavedItemCodes 返回卖家收藏的商品编码。
func (s *Service) SavedItemCodes(ctx context.Context, sellerEmail string) ([]string, error) {
	codes := []string{}
	if err := s.db.WithContext(ctx).Model(&model.SavedItem{}).
		Where("seller_email = ?", sellerEmail).
		Order("id ASC").
		Pluck("item_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("saved item codes: %w", err)
	}
	return codes, nil
}

// AppendSellerActivity 为卖家档案追加一条活动日志。
func (s *Service) AppendSellerActivity(ctx context.Context, sellerEmail, details string) (*model.ActivityEntry, error) {
	var seller model.Seller
	err := s.db.WithContext(ctx).Where("email = ?", sellerEmail).First(&seller).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &hub.NotFoundError{Entity: "seller", Key: sellerEmail}
	}
	if err != nil {
		return nil, fmt.Errorf("load seller: %w", err)
	}

	entry := model.ActivityEntry{
		SellerID: seller.ID,
		Type:     model.LogTypeSellerActivity,
		Details:  details,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	return &entry, nil
}

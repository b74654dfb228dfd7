// Package curation 实现首页内容编排与商品查询。
//
// 所有查询走 GORM，聚合出的商品列表统一经过 PostProcessItemDetails 整形，
// 保证客户端拿到的每个字段都有定义好的默认值。
package curation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sellerhub/internal/model"

	"gorm.io/gorm"
)

const defaultCategorySample = 8

// Service 是商品存取与首页编排的入口。
type Service struct {
	db         *gorm.DB
	logger     *slog.Logger
	sampleSize int
}

// NewService 创建编排服务。sampleSize 是首页每个分类抽样的商品数。
func NewService(db *gorm.DB, logger *slog.Logger, sampleSize int) *Service {
	if sampleSize <= 0 {
		sampleSize = defaultCategorySample
	}
	return &Service{db: db, logger: logger, sampleSize: sampleSize}
}

// ItemDetails 是面向客户端的商品形态，所有可选字段都已给定默认值。
type ItemDetails struct {
	Code        string    `json:"code"`
	ItemName    string    `json:"item_name"`
	Description string    `json:"description"`
	Keywords    string    `json:"keywords"`
	HasImage    bool      `json:"has_image"`
	ImageURL    string    `json:"image_url"`
	Country     string    `json:"country"`
	Price       int64     `json:"price"`
	SellerEmail string    `json:"seller_email"`
	Company     string    `json:"company"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	ViewCount   int64     `json:"view_count"`
}

// Feed 是首页各栏目的编排结果，空栏目序列化为 []，不会是 null。
type Feed struct {
	ItemsByCountry  []ItemDetails `json:"items_by_country"`
	ItemsWithImages []ItemDetails `json:"items_with_images"`
	RandomItems     []ItemDetails `json:"random_items"`
	CategoryItems   []ItemDetails `json:"category_items"`
}

// HomepageFeed 组装首页内容。
//
// items_by_country 只在指定 country 时非空，且不做引用解析（原始字段子集）；
// random_items 为每个卖家随机取一件，顺序按卖家入库顺序；
// category_items 按叶子分类各抽样若干件后合并去重。
func (s *Service) HomepageFeed(ctx context.Context, country string) (*Feed, error) {
	feed := &Feed{
		ItemsByCountry:  []ItemDetails{},
		ItemsWithImages: []ItemDetails{},
		RandomItems:     []ItemDetails{},
		CategoryItems:   []ItemDetails{},
	}

	if country != "" {
		var rows []model.Item
		if err := s.db.WithContext(ctx).
			Where("country = ?", country).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("items by country: %w", err)
		}
		feed.ItemsByCountry = PostProcessItemDetails(rows, nil, nil)
	}

	var withImages []model.Item
	if err := s.db.WithContext(ctx).
		Where("has_image = ?", true).
		Find(&withImages).Error; err != nil {
		return nil, fmt.Errorf("items with images: %w", err)
	}
	details, err := s.postProcess(ctx, withImages)
	if err != nil {
		return nil, err
	}
	feed.ItemsWithImages = details

	randomRows, err := s.randomItemPerSeller(ctx)
	if err != nil {
		return nil, err
	}
	details, err = s.postProcess(ctx, randomRows)
	if err != nil {
		return nil, err
	}
	feed.RandomItems = details

	categoryRows, err := s.categorySamples(ctx)
	if err != nil {
		return nil, err
	}
	details, err = s.postProcess(ctx, categoryRows)
	if err != nil {
		return nil, err
	}
	feed.CategoryItems = details

	return feed, nil
}

// randomItemPerSeller 为每个卖家随机取一件商品，结果按卖家入库顺序排列。
// 随机性不要求可复现（ORDER BY RAND() 交给 MySQL）。
func (s *Service) randomItemPerSeller(ctx context.Context) ([]model.Item, error) {
	var sellers []model.Seller
	if err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}

	items := make([]model.Item, 0, len(sellers))
	for _, seller := range sellers {
		var item model.Item
		err := s.db.WithContext(ctx).
			Where("seller_email = ?", seller.Email).
			Order("RAND()").
			First(&item).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("random item for %s: %w", seller.Email, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// categorySamples 为每个叶子分类抽样至多 sampleSize 件商品，合并后按编码去重。
func (s *Service) categorySamples(ctx context.Context) ([]model.Item, error) {
	var leaves []model.Category
	if err := s.db.WithContext(ctx).
		Where("name <> ?", model.RootCategory).
		Where("name NOT IN (?)", s.db.Model(&model.Category{}).Select("parent")).
		Order("id ASC").
		Find(&leaves).Error; err != nil {
		return nil, fmt.Errorf("list leaf categories: %w", err)
	}

	lists := make([][]model.Item, 0, len(leaves))
	for _, cat := range leaves {
		var rows []model.Item
		if err := s.db.WithContext(ctx).
			Where("category_name = ?", cat.Name).
			Order("id DESC").
			Limit(s.sampleSize).
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("items for category %s: %w", cat.Name, err)
		}
		lists = append(lists, rows)
	}
	return MergeDedupe(lists...), nil
}

// MergeDedupe 合并多个商品列表并按商品编码去重，保持首次出现的顺序。
func MergeDedupe(lists ...[]model.Item) []model.Item {
	seen := make(map[string]struct{})
	out := make([]model.Item, 0)
	for _, list := range lists {
		for _, item := range list {
			if _, ok := seen[item.Code]; ok {
				continue
			}
			seen[item.Code] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// PostProcessItemDetails 把原始商品行整形为客户端形态。
//
// 纯函数：给定相同的行和引用记录，输出一致，无副作用。
// 引用的卖家/分类缺失时对应字段留默认值，不报错。
func PostProcessItemDetails(items []model.Item, sellers map[string]model.Seller, categories map[string]model.Category) []ItemDetails {
	out := make([]ItemDetails, 0, len(items))
	for _, it := range items {
		d := ItemDetails{
			Code:        it.Code,
			ItemName:    it.ItemName,
			Description: it.Description,
			Keywords:    it.Keywords,
			HasImage:    it.HasImage,
			ImageURL:    it.ImageURL,
			Country:     it.Country,
			Price:       it.Price,
			SellerEmail: it.SellerEmail,
			CreatedAt:   it.CreatedAt,
		}
		if seller, ok := sellers[it.SellerEmail]; ok {
			d.Company = seller.Company
		}
		if cat, ok := categories[it.CategoryName]; ok {
			d.Category = cat.Name
		}
		out = append(out, d)
	}
	return out
}

// postProcess 加载行引用到的卖家与分类后调用纯整形函数。
func (s *Service) postProcess(ctx context.Context, items []model.Item) ([]ItemDetails, error) {
	if len(items) == 0 {
		return []ItemDetails{}, nil
	}

	emailSet := make(map[string]struct{})
	nameSet := make(map[string]struct{})
	for _, it := range items {
		emailSet[it.SellerEmail] = struct{}{}
		if it.CategoryName != "" {
			nameSet[it.CategoryName] = struct{}{}
		}
	}

	sellers, err := s.sellersByEmail(ctx, keys(emailSet))
	if err != nil {
		return nil, err
	}
	categories, err := s.categoriesByName(ctx, keys(nameSet))
	if err != nil {
		return nil, err
	}

	return PostProcessItemDetails(items, sellers, categories), nil
}

// QueryItems 按 keyword / seller / filters 查询并整形商品。
//
// keyword 会并入 keywords 字段的子串匹配；sellerEmail 覆盖已有的 seller 过滤。
func (s *Service) QueryItems(ctx context.Context, keyword, sellerEmail string, filters []Filter) ([]ItemDetails, error) {
	merged := BuildQueryFilters(keyword, sellerEmail, filters)

	q := s.db.WithContext(ctx).Model(&model.Item{})
	q, err := applyFilters(q, merged)
	if err != nil {
		return nil, err
	}

	var rows []model.Item
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return s.postProcess(ctx, rows)
}

// ItemByCode 返回整形后的单个商品；不存在时返回 (nil, nil)。
func (s *Service) ItemByCode(ctx context.Context, code string) (*ItemDetails, error) {
	var row model.Item
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("item by code: %w", err)
	}

	details, err := s.postProcess(ctx, []model.Item{row})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Categories 返回指定父分类下的直接子分类，parent 为空时取根哨兵。
func (s *Service) Categories(ctx context.Context, parent string) ([]model.Category, error) {
	if parent == "" {
		parent = model.RootCategory
	}
	categories := []model.Category{}
	if err := s.db.WithContext(ctx).
		Where("parent = ?", parent).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) sellersByEmail(ctx context.Context, emails []string) (map[string]model.Seller, error) {
	if len(emails) == 0 {
		return map[string]model.Seller{}, nil
	}
	var rows []model.Seller
	if err := s.db.WithContext(ctx).Where("email IN ?", emails).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}
	out := make(map[string]model.Seller, len(rows))
	for _, r := range rows {
		out[r.Email] = r
	}
	return out, nil
}

func (s *Service) categoriesByName(ctx context.Context, names []string) (map[string]model.Category, error) {
	if len(names) == 0 {
		return map[string]model.Category{}, nil
	}
	var rows []model.Category
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	out := make(map[string]model.Category, len(rows))
	for _, r := range rows {
		out[r.Name] = r
	}
	return out, nil
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

package model

import "time"

// 日志条目类型。
const (
	LogTypeItemView       = "Item View"
	LogTypeItemSave       = "Item Save"
	LogTypeSellerActivity = "Seller Activity"
)

// RootCategory 是分类树的根哨兵节点。
const RootCategory = "All Categories"

// Item 表示卖家发布的商品。
//
// Code 是商品在 hub 内的唯一标识，评论、消息和日志都通过 Code 引用商品。
// 商品在本系统范围内不做硬删除。
type Item struct {
	ID           uint      `gorm:"primaryKey"`                            // 内部 ID
	Code         string    `gorm:"type:varchar(64);uniqueIndex;not null"` // 商品唯一编码
	SellerEmail  string    `gorm:"type:varchar(191);index;not null"`      // 所属卖家
	CategoryName string    `gorm:"type:varchar(128);index"`               // 所属分类（可为空）
	ItemName     string    `gorm:"type:varchar(191)"`                     // 商品名
	Description  string    `gorm:"type:text"`                             // 商品描述
	Keywords     string    `gorm:"type:varchar(512)"`                     // 检索关键词
	HasImage     bool      `gorm:"default:false"`                         // 是否带图
	ImageURL     string    `gorm:"type:varchar(512)"`                     // 主图链接
	Country      string    `gorm:"type:varchar(64);index"`                // 商品所在国家
	Price        int64     // 价格（最小货币单位）
	CreatedAt    time.Time // 发布时间
	UpdatedAt    time.Time // 更新时间
}

// Category 表示商品分类。
//
// Parent 指向父分类名，形成一棵树；根节点是哨兵 "All Categories"。
type Category struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(128);uniqueIndex;not null"` // 分类名（唯一）
	Parent    string    `gorm:"type:varchar(128);index"`                // 父分类名
	CreatedAt time.Time
}

// Review 表示商品评论。
//
// (item_code, author_email) 上的唯一索引保证同一用户对同一商品最多一条评论，
// 并发请求下由存储层兜底。
type Review struct {
	ID          uint      `gorm:"primaryKey"`
	ItemCode    string    `gorm:"type:varchar(64);uniqueIndex:idx_item_author;not null"`  // 所属商品
	AuthorEmail string    `gorm:"type:varchar(191);uniqueIndex:idx_item_author;not null"` // 评论人
	Subject     string    `gorm:"type:varchar(191)"`                                      // 标题
	Content     string    `gorm:"type:text"`                                              // 内容
	Rating      int       // 评分 1-5
	CreatedAt   time.Time // 评论时间
}

// LogEntry 表示一条只追加的事件日志（浏览 / 收藏 / 卖家活动）。
type LogEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Type      string    `gorm:"type:varchar(32);index:idx_type_item"`  // 事件类型
	ItemCode  string    `gorm:"type:varchar(64);index:idx_type_item"`  // 引用商品
	Actor     string    `gorm:"type:varchar(191)"`                     // 触发人
	Flag      bool      // 布尔标记（收藏=true / 取消=false）
	CreatedAt time.Time // 发生时间
}

// Message 表示卖家之间关于某个商品的站内消息。
//
// 消息创建后不可变，按创建时间排序。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Sender    string    `gorm:"type:varchar(191);index" json:"sender"`          // 发送方邮箱
	Receiver  string    `gorm:"type:varchar(191);index" json:"receiver"`        // 接收方邮箱
	ItemCode  string    `gorm:"type:varchar(64);index;not null" json:"item_code"` // 引用商品
	Content   string    `gorm:"type:text" json:"content"`                       // 消息内容
	CreatedAt time.Time `json:"created_at"`                                     // 发送时间
}

// SavedItem 表示卖家收藏的商品（存在即收藏）。
//
// (seller_email, item_code) 唯一，重复收藏靠冲突忽略保证幂等。
type SavedItem struct {
	ID          uint      `gorm:"primaryKey"`
	SellerEmail string    `gorm:"type:varchar(191);uniqueIndex:idx_seller_item;not null"`
	ItemCode    string    `gorm:"type:varchar(64);uniqueIndex:idx_seller_item;not null"`
	CreatedAt   time.Time
}

package model

import "time"

// User 表示登录身份。
//
// 注册时与 Seller 档案在同一事务中创建；重新注册会重新启用账号并下发新密码。
type User struct {
	ID        uint      `gorm:"primaryKey"`                      // 用户 ID
	Email     string    `gorm:"type:varchar(191);uniqueIndex"`   // 邮箱（唯一）
	Password  string    `gorm:"not null"`                        // bcrypt 哈希
	Role      string    `gorm:"type:varchar(16);default:seller"` // 角色: seller / admin
	Enabled   bool      `gorm:"default:true"`                    // 是否启用
	CreatedAt time.Time // 创建时间
}

// Seller 表示卖家档案。
//
// 档案只能由本人修改；活动日志只追加，从不修改或删除。
type Seller struct {
	ID                 uint      `gorm:"primaryKey"`                    // 卖家 ID
	UserID             uint      `gorm:"uniqueIndex;not null"`          // 关联的登录身份
	Email              string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（与 User 一致）
	Company            string    `gorm:"type:varchar(191);index"`       // 公司名
	CompanyDescription string    `gorm:"type:text"`                     // 公司简介
	Country            string    `gorm:"type:varchar(64)"`              // 所在国家
	SiteName           string    `gorm:"type:varchar(191)"`             // 卖家站点
	Enabled            bool      `gorm:"default:true"`                  // 是否启用
	CreatedAt          time.Time // 注册时间

	Activity []ActivityEntry `gorm:"foreignKey:SellerID"` // 活动日志（只追加）
}

// ActivityEntry 卖家活动日志条目。
type ActivityEntry struct {
	ID        uint      `gorm:"primaryKey"`
	SellerID  uint      `gorm:"index;not null"`   // 所属卖家
	Type      string    `gorm:"type:varchar(64)"` // 活动类型，如 "Created"
	Details   string    `gorm:"type:text"`        // 活动详情
	CreatedAt time.Time // 发生时间
}

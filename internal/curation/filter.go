package curation

import (
	"encoding/json"
	"strings"

	"sellerhub/internal/hub"

	"gorm.io/gorm"
)

// Op 是过滤条件的操作符。
type Op string

const (
	OpEquals Op = "eq"   // 字段等于单个值
	OpIn     Op = "in"   // 字段属于值集合
	OpLike   Op = "like" // 字段包含子串（大小写不敏感，MySQL 默认排序规则）
)

// Filter 是在边界上校验过的查询条件。
//
// 松散的 map 过滤器在这里收敛为带标签的变体，未知字段或操作符直接拒绝。
type Filter struct {
	Field  string   `json:"field"`
	Op     Op       `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// filterColumns 允许过滤的字段到数据库列的映射。
var filterColumns = map[string]string{
	"code":      "code",
	"seller":    "seller_email",
	"category":  "category_name",
	"country":   "country",
	"keywords":  "keywords",
	"item_name": "item_name",
	"has_image": "has_image",
}

// Validate 校验字段与操作符的组合。
func (f Filter) Validate() error {
	if _, ok := filterColumns[f.Field]; !ok {
		return hub.Validationf("unknown filter field %q", f.Field)
	}
	switch f.Op {
	case OpEquals, OpLike:
		if f.Value == "" {
			return hub.Validationf("filter %q requires a value", f.Field)
		}
	case OpIn:
		if len(f.Values) == 0 {
			return hub.Validationf("filter %q requires values", f.Field)
		}
	default:
		return hub.Validationf("unknown filter op %q", string(f.Op))
	}
	return nil
}

// ParseFilters 解析请求里的 JSON 过滤器数组并逐个校验。
func ParseFilters(raw string) ([]Filter, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var filters []Filter
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		return nil, hub.Validationf("invalid filters: %v", err)
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	return filters, nil
}

// BuildQueryFilters 将 keyword 和 seller 合并进过滤器列表。
//
// keyword 作为 keywords 字段的子串匹配；seller 覆盖已有的 seller 条件。
func BuildQueryFilters(keyword, sellerEmail string, filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters)+2)
	for _, f := range filters {
		if sellerEmail != "" && f.Field == "seller" {
			continue
		}
		out = append(out, f)
	}
	if keyword != "" {
		out = append(out, Filter{Field: "keywords", Op: OpLike, Value: keyword})
	}
	if sellerEmail != "" {
		out = append(out, Filter{Field: "seller", Op: OpEquals, Value: sellerEmail})
	}
	return out
}

func applyFilters(q *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		column := filterColumns[f.Field]
		switch f.Op {
		case OpEquals:
			q = q.Where(column+" = ?", f.Value)
		case OpIn:
			q = q.Where(column+" IN ?", f.Values)
		case OpLike:
			q = q.Where(column+" LIKE ?", "%"+escapeLike(f.Value)+"%")
		}
	}
	return q, nil
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(v)
}

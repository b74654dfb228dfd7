package api

import (
	"errors"

	"sellerhub/internal/model"

	"gorm.io/gorm"
)

// EnsureBaseData 确保基础数据存在。
//
// 根分类是所有一级分类的 parent 哨兵，缺了它 /categories 的默认查询会落空。
func EnsureBaseData(db *gorm.DB) error {
	var root model.Category
	err := db.Where("name = ?", model.RootCategory).First(&root).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(&model.Category{Name: model.RootCategory}).Error
}

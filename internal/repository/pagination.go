package repository

import "gorm.io/gorm"

// applyPagination 按页码追加 LIMIT/OFFSET，pageSize 非法时不分页。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * pageSize
	}
	return query.Limit(pageSize).Offset(offset)
}

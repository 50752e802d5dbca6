package models

import "gorm.io/gorm"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Page struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Apply adds LIMIT/OFFSET, Normalize must have been called
func (p Page) Apply(tx *gorm.DB) *gorm.DB {
	return tx.Limit(p.PerPage).Offset(p.Offset())
}

type PageResult[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func (r PageResult[T]) Pages() int {
	if r.PerPage <= 0 {
		return 0
	}
	return int((r.Total + int64(r.PerPage) - 1) / int64(r.PerPage))
}

// Paginate counts and loads one page of the query into a PageResult.
// Preloads are only applied to the page query, never to the count.
func Paginate[T any](query *gorm.DB, p Page, preloads ...string) (result PageResult[T], err error) {
	p.Normalize()
	result.Page = p.Page
	result.PerPage = p.PerPage
	result.Items = []T{}
	if err = query.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		return
	}
	find := p.Apply(query.Session(&gorm.Session{}))
	for _, name := range preloads {
		find = find.Preload(name)
	}
	err = find.Find(&result.Items).Error
	return
}

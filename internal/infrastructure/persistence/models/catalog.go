package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/disi/commandes/internal/domain/catalog"
)

// CategoryModel is the categories row
type CategoryModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex:uq_categories_name"`
	Description string `gorm:"type:text"`
}

func (CategoryModel) TableName() string { return "categories" }

// CategoryModelFromDomain maps a category for persistence
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{Name: c.Name, Description: c.Description}
	m.fromAggregate(c.BaseAggregateRoot)
	return m
}

func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseAggregateRoot: m.toAggregate(),
		Name:              m.Name,
		Description:       m.Description,
	}
}

// ProductModel is the products row
type ProductModel struct {
	AggregateModel
	Reference   string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_products_reference"`
	Name        string          `gorm:"type:varchar(200);not null;index"`
	Description string          `gorm:"type:text"`
	CategoryID  *uuid.UUID      `gorm:"type:char(36);index"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Stock       int             `gorm:"not null;default:0"`
	ImageKey    string          `gorm:"type:varchar(255)"`
	Active      bool            `gorm:"not null;default:true;index"`
}

func (ProductModel) TableName() string { return "products" }

// ProductModelFromDomain maps a product for persistence
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Reference:   p.Reference,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageKey:    p.ImageKey,
		Active:      p.Active,
	}
	m.fromAggregate(p.BaseAggregateRoot)
	return m
}

func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.toAggregate(),
		Reference:         m.Reference,
		Name:              m.Name,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		Price:             m.Price,
		Stock:             m.Stock,
		ImageKey:          m.ImageKey,
		Active:            m.Active,
	}
}

package models

import (
	"github.com/erp/posting/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product aggregate
type ProductModel struct {
	TenantAggregateModel
	Code   string              `gorm:"type:varchar(50);not null"`
	Name   string              `gorm:"type:varchar(200);not null"`
	Kind   catalog.ProductKind `gorm:"type:varchar(20);not null"`
	Active bool                `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Kind:                m.Kind,
		Active:              m.Active,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{Code: p.Code, Name: p.Name, Kind: p.Kind, Active: p.Active}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

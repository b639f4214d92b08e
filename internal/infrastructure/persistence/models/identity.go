package models

import (
	"github.com/erp/posting/internal/domain/identity"
	"github.com/google/uuid"
)

// TenantModel is the persistence model for the Tenant aggregate
type TenantModel struct {
	AggregateModel
	Code               string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name               string                `gorm:"type:varchar(200);not null"`
	TaxID              string                `gorm:"type:varchar(32);not null"`
	Currency           string                `gorm:"type:varchar(3);not null"`
	Timezone           string                `gorm:"type:varchar(64);not null;default:'UTC'"`
	Status             identity.TenantStatus `gorm:"type:varchar(20);not null"`
	DefaultWarehouseID *uuid.UUID            `gorm:"type:uuid"`
	DefaultLocationID  *uuid.UUID            `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot:  m.AggregateRoot(),
		Code:               m.Code,
		Name:               m.Name,
		TaxID:              m.TaxID,
		Currency:           m.Currency,
		Timezone:           m.Timezone,
		Status:             m.Status,
		DefaultWarehouseID: m.DefaultWarehouseID,
		DefaultLocationID:  m.DefaultLocationID,
	}
}

// TenantModelFromDomain creates a persistence model from a domain Tenant
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{
		Code:               t.Code,
		Name:               t.Name,
		TaxID:              t.TaxID,
		Currency:           t.Currency,
		Timezone:           t.Timezone,
		Status:             t.Status,
		DefaultWarehouseID: t.DefaultWarehouseID,
		DefaultLocationID:  t.DefaultLocationID,
	}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}

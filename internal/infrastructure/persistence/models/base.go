// Package models holds the gorm row types and their mapping to domain
// aggregates. Domain types never carry gorm tags.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/disi/commandes/internal/domain/shared"
)

// BaseModel maps shared.BaseEntity. IDs are stored as char(36) so the same
// model works on postgres, mysql and sqlite.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) fromEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}

func (m *BaseModel) toEntity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// AggregateModel adds the optimistic locking version
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) fromAggregate(a shared.BaseAggregateRoot) {
	m.fromEntity(a.BaseEntity)
	m.Version = a.Version
}

func (m *AggregateModel) toAggregate() shared.BaseAggregateRoot {
	return shared.RestoreAggregateRoot(m.toEntity(), m.Version)
}

// utc normalises optional timestamps; sqlite compares them as text
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// All lists every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&CategoryModel{},
		&ProductModel{},
		&UserModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderHistoryModel{},
	}
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CustomerType string

const (
	TypePerson  CustomerType = "person"
	TypeCompany CustomerType = "company"
)

func (t CustomerType) Valid() bool {
	return t == TypePerson || t == TypeCompany
}

type Customer struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Type          CustomerType      `gorm:"size:20;not null;default:person" json:"type"`
	Name          string            `gorm:"size:255;not null" json:"name"`
	ContactPerson string            `gorm:"size:255;not null;default:''" json:"contact_person,omitempty"`
	Phone         string            `gorm:"size:50;not null;default:''" json:"phone,omitempty"`
	Email         string            `gorm:"size:255;not null;default:''" json:"email,omitempty"`
	CompanyCode   string            `gorm:"size:40;not null;default:''" json:"company_code,omitempty"`
	Address       string            `gorm:"size:255;not null;default:''" json:"address,omitempty"`
	Telegram      string            `gorm:"size:100;not null;default:''" json:"telegram,omitempty"`
	Notes         string            `gorm:"not null;default:''" json:"notes,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_customers_created,priority:1" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// DisplayName is what documents print for the customer.
func (c Customer) DisplayName() string {
	if c.Type == TypeCompany && c.ContactPerson != "" {
		return c.Name + " (" + c.ContactPerson + ")"
	}
	return c.Name
}

func Models() []any {
	return []any{&Customer{}}
}

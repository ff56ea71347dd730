package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/internal/pricing"
)

type Category struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name       string        `gorm:"size:255;not null" json:"name"`
	CategoryID *snowflake.ID `gorm:"index" json:"category_id,omitempty"`
	BaseUnits  float64       `gorm:"not null;default:0" json:"base_units"`
	ImagePath  string        `gorm:"size:512;not null;default:''" json:"image_path,omitempty"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p Product) Selected() pricing.SelectedProduct {
	return pricing.SelectedProduct{ID: p.ID, CategoryID: p.CategoryID}
}

type Addition struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	UnitValue   float64        `gorm:"not null;default:0" json:"unit_value"`
	IsGlobal    bool           `gorm:"not null;default:false" json:"is_global"`
	CategoryIDs []snowflake.ID `gorm:"-" json:"category_ids"`
	ProductIDs  []snowflake.ID `gorm:"-" json:"product_ids"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Addition) TableName() string { return "additions" }

func (a Addition) Scope() pricing.Scope {
	return pricing.Scope{Global: a.IsGlobal, CategoryIDs: a.CategoryIDs, ProductIDs: a.ProductIDs}
}

type Coefficient struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Value       float64        `gorm:"not null;default:1" json:"value"`
	IsGlobal    bool           `gorm:"not null;default:false" json:"is_global"`
	CategoryIDs []snowflake.ID `gorm:"-" json:"category_ids"`
	ProductIDs  []snowflake.ID `gorm:"-" json:"product_ids"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Coefficient) TableName() string { return "coefficients" }

func (c Coefficient) Scope() pricing.Scope {
	return pricing.Scope{Global: c.IsGlobal, CategoryIDs: c.CategoryIDs, ProductIDs: c.ProductIDs}
}

// Scope rows. Only used for schema creation outside postgres.
type AdditionCategory struct {
	AdditionID snowflake.ID `gorm:"primaryKey"`
	CategoryID snowflake.ID `gorm:"primaryKey"`
}

func (AdditionCategory) TableName() string { return "addition_categories" }

type AdditionProduct struct {
	AdditionID snowflake.ID `gorm:"primaryKey"`
	ProductID  snowflake.ID `gorm:"primaryKey"`
}

func (AdditionProduct) TableName() string { return "addition_products" }

type CoefficientCategory struct {
	CoefficientID snowflake.ID `gorm:"primaryKey"`
	CategoryID    snowflake.ID `gorm:"primaryKey"`
}

func (CoefficientCategory) TableName() string { return "coefficient_categories" }

type CoefficientProduct struct {
	CoefficientID snowflake.ID `gorm:"primaryKey"`
	ProductID     snowflake.ID `gorm:"primaryKey"`
}

func (CoefficientProduct) TableName() string { return "coefficient_products" }

// Models lists every catalog table for AutoMigrate.
func Models() []any {
	return []any{
		&Category{},
		&Product{},
		&Addition{},
		&AdditionCategory{},
		&AdditionProduct{},
		&Coefficient{},
		&CoefficientCategory{},
		&CoefficientProduct{},
	}
}

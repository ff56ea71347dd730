package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/doorcalc/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Email     string
	Type      string
}

type ListCustomerFilter struct {
	Name  string
	Email string
	Type  CustomerType
	// Keyset position; rows strictly after it in (created_at desc, id desc) order.
	AfterCreatedAt *time.Time
	AfterID        snowflake.ID
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// CustomerRequest is shared by create and update; update replaces every field.
type CustomerRequest struct {
	Type          string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	CompanyCode   string
	Address       string
	Telegram      string
	Notes         string
}

type CreateCustomerRequest = CustomerRequest

type UpdateCustomerRequest struct {
	ID string
	CustomerRequest
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidType  = errors.New("invalid_customer_type")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)

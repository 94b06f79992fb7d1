package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Table names follow the library schema
// rather than GORM defaults.

type BookModel struct {
	ISBN   string  `gorm:"primaryKey;column:isbn"`
	Title  string  `gorm:"not null;index"`
	Author string  `gorm:"not null;index"`
	Price  float64 `gorm:"not null"`
	Stock  int     `gorm:"not null"`
}

func (BookModel) TableName() string { return "books" }

type CustomerModel struct {
	ID    int    `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"not null"`
	Email string `gorm:"uniqueIndex;not null"`
}

func (CustomerModel) TableName() string { return "customers" }

type OrderModel struct {
	ID         int       `gorm:"primaryKey;autoIncrement"`
	CustomerID int       `gorm:"not null;index"`
	Status     string    `gorm:"not null;default:pending"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (OrderModel) TableName() string { return "orders" }

type OrderItemModel struct {
	ID              int     `gorm:"primaryKey;autoIncrement"`
	OrderID         int     `gorm:"not null;index"`
	ISBN            string  `gorm:"column:isbn;not null;index"`
	Qty             int     `gorm:"not null"`
	PriceAtPurchase float64 `gorm:"not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	SessionID string    `gorm:"not null;index"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (MessageModel) TableName() string { return "messages" }

type ToolCallModel struct {
	ID         string         `gorm:"primaryKey"`
	SessionID  string         `gorm:"not null;index"`
	Name       string         `gorm:"not null"`
	ArgsJSON   datatypes.JSON `gorm:"type:jsonb"`
	ResultJSON datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
}

func (ToolCallModel) TableName() string { return "tool_calls" }

package domain

import "time"

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SearchField selects which book column find_books matches against.
type SearchField string

const (
	SearchByTitle  SearchField = "title"
	SearchByAuthor SearchField = "author"
)

type Book struct {
	ISBN   string  `json:"isbn"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
}

type Customer struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID         int         `json:"id"`
	CustomerID int         `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

type OrderItem struct {
	OrderID         int     `json:"order_id"`
	ISBN            string  `json:"isbn"`
	Qty             int     `json:"qty"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// OrderItemInput is one requested line of a new order. Exactly one of ISBN or
// Title identifies the book; ISBN wins when both are present.
type OrderItemInput struct {
	ISBN  string `json:"isbn,omitempty"`
	Title string `json:"title,omitempty"`
	Qty   int    `json:"qty"`
}

// OrderLine is a resolved line of a created order carrying the price snapshot
// taken at creation time.
type OrderLine struct {
	ISBN  string  `json:"isbn"`
	Title string  `json:"title"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// OrderConfirmation is what CreateOrder returns on success.
type OrderConfirmation struct {
	OrderID    int         `json:"order_id"`
	CustomerID int         `json:"customer_id"`
	Items      []OrderLine `json:"items"`
}

// OrderDetailItem is an order line joined with its book.
type OrderDetailItem struct {
	ISBN            string  `json:"isbn"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Qty             int     `json:"qty"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// OrderDetail joins an order with its customer and line items.
type OrderDetail struct {
	OrderID       int               `json:"order_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Status        OrderStatus       `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderDetailItem `json:"items"`
}

type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SessionInfo is a session token with its first-seen time, derived from the
// session's oldest message.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToolCallRecord is the audit trail of one tool invocation. It is never read
// back for control flow.
type ToolCallRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Args      []byte    `json:"args"`
	Result    []byte    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

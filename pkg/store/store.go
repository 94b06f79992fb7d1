package store

import (
	"librarydesk/pkg/domain"
)

// Store defines persistence operations for books, customers, orders, chat
// messages, and tool-call audit records. Lookups report absence via the bool
// return; the error return is reserved for storage faults.
type Store interface {
	// books
	SaveBook(domain.Book) error
	GetBook(isbn string) (domain.Book, bool, error)
	SearchBooks(q string, by domain.SearchField) ([]domain.Book, error)
	RestockBook(isbn string, qty int) (domain.Book, bool, error)
	SetPrice(isbn string, price float64) (oldPrice float64, book domain.Book, found bool, err error)
	LowStockBooks(threshold int) ([]domain.Book, error)
	InventoryTotals() (titles int, units int, err error)

	// customers
	SaveCustomer(domain.Customer) error
	GetCustomer(id int) (domain.Customer, bool, error)

	// orders
	CreateOrder(customerID int, items []domain.OrderItemInput) (domain.OrderConfirmation, error)
	GetOrderDetail(orderID int) (domain.OrderDetail, bool, error)

	// chat
	AppendMessage(domain.Message) error
	ListMessages(sessionID string) ([]domain.Message, error)
	ListSessions() ([]domain.SessionInfo, error)
	DeleteSession(sessionID string) error

	// audit
	AppendToolCall(domain.ToolCallRecord) error
	ListToolCalls(sessionID string) ([]domain.ToolCallRecord, error)
}

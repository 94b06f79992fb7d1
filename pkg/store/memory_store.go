package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"librarydesk/pkg/domain"
)

// MemoryStore keeps everything in-process behind one mutex. It backs unit
// tests; the mutex gives it the same serialization guarantee for order
// creation that the Gorm store gets from row locks.
type MemoryStore struct {
	mu        sync.Mutex
	books     map[string]domain.Book
	customers map[int]domain.Customer
	orders    map[int]domain.Order
	items     map[int][]domain.OrderItem
	messages  map[string][]domain.Message
	toolCalls map[string][]domain.ToolCallRecord
	nextOrder int
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:     make(map[string]domain.Book),
		customers: make(map[int]domain.Customer),
		orders:    make(map[int]domain.Order),
		items:     make(map[int][]domain.OrderItem),
		messages:  make(map[string][]domain.Message),
		toolCalls: make(map[string][]domain.ToolCallRecord),
		nextOrder: 1,
	}
}

var _ Store = (*MemoryStore)(nil)

// SaveBook stores or replaces a book.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ISBN] = b
	return nil
}

// GetBook retrieves a book by exact ISBN.
func (m *MemoryStore) GetBook(isbn string) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	return b, ok, nil
}

// SearchBooks matches title or author case-insensitively, ordered by ISBN.
func (m *MemoryStore) SearchBooks(q string, by domain.SearchField) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(q))
	res := make([]domain.Book, 0)
	for _, isbn := range m.sortedISBNs() {
		b := m.books[isbn]
		field := b.Title
		if by == domain.SearchByAuthor {
			field = b.Author
		}
		if strings.Contains(strings.ToLower(field), needle) {
			res = append(res, b)
		}
	}
	return res, nil
}

// RestockBook adds qty to a book's stock.
func (m *MemoryStore) RestockBook(isbn string, qty int) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return domain.Book{}, false, nil
	}
	b.Stock += qty
	m.books[isbn] = b
	return b, true, nil
}

// SetPrice replaces a book's price and returns the previous one.
func (m *MemoryStore) SetPrice(isbn string, price float64) (float64, domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return 0, domain.Book{}, false, nil
	}
	old := b.Price
	b.Price = price
	m.books[isbn] = b
	return old, b, true, nil
}

// LowStockBooks returns books with stock below threshold, ascending by stock.
func (m *MemoryStore) LowStockBooks(threshold int) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Book, 0)
	for _, isbn := range m.sortedISBNs() {
		if b := m.books[isbn]; b.Stock < threshold {
			res = append(res, b)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Stock < res[j].Stock })
	return res, nil
}

// InventoryTotals returns title count and total stock units.
func (m *MemoryStore) InventoryTotals() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	units := 0
	for _, b := range m.books {
		units += b.Stock
	}
	return len(m.books), units, nil
}

// SaveCustomer stores or replaces a customer.
func (m *MemoryStore) SaveCustomer(c domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

// GetCustomer retrieves a customer by ID.
func (m *MemoryStore) GetCustomer(id int) (domain.Customer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	return c, ok, nil
}

// CreateOrder validates every line against stock net of the lines staged so
// far, then applies all decrements and rows at once. All-or-nothing under the
// store mutex.
func (m *MemoryStore) CreateOrder(customerID int, items []domain.OrderItemInput) (domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[customerID]; !ok {
		return domain.OrderConfirmation{}, ErrCustomerNotFound
	}

	staged := make(map[string]int)
	lines := make([]domain.OrderLine, 0, len(items))
	for _, item := range items {
		book, err := m.resolveBook(item)
		if err != nil {
			return domain.OrderConfirmation{}, err
		}
		available := book.Stock - staged[book.ISBN]
		if available < item.Qty {
			return domain.OrderConfirmation{}, &InsufficientStockError{
				Title:     book.Title,
				Available: available,
				Requested: item.Qty,
			}
		}
		staged[book.ISBN] += item.Qty
		lines = append(lines, domain.OrderLine{
			ISBN:  book.ISBN,
			Title: book.Title,
			Qty:   item.Qty,
			Price: book.Price,
		})
	}

	orderID := m.nextOrder
	m.nextOrder++
	order := domain.Order{
		ID:         orderID,
		CustomerID: customerID,
		Status:     domain.OrderPending,
		CreatedAt:  time.Now().UTC(),
	}
	m.orders[orderID] = order
	for _, line := range lines {
		b := m.books[line.ISBN]
		b.Stock -= line.Qty
		m.books[line.ISBN] = b
		m.items[orderID] = append(m.items[orderID], domain.OrderItem{
			OrderID:         orderID,
			ISBN:            line.ISBN,
			Qty:             line.Qty,
			PriceAtPurchase: line.Price,
		})
	}
	return domain.OrderConfirmation{
		OrderID:    orderID,
		CustomerID: customerID,
		Items:      lines,
	}, nil
}

// resolveBook mirrors the Gorm store's resolution: exact ISBN first, then the
// first title-substring match in ISBN order.
func (m *MemoryStore) resolveBook(item domain.OrderItemInput) (domain.Book, error) {
	if isbn := strings.TrimSpace(item.ISBN); isbn != "" {
		if b, ok := m.books[isbn]; ok {
			return b, nil
		}
		return domain.Book{}, &BookNotFoundError{Ref: item.ISBN}
	}
	ref := strings.TrimSpace(item.Title)
	if ref == "" {
		return domain.Book{}, &BookNotFoundError{Ref: "unknown"}
	}
	needle := strings.ToLower(ref)
	for _, isbn := range m.sortedISBNs() {
		if strings.Contains(strings.ToLower(m.books[isbn].Title), needle) {
			return m.books[isbn], nil
		}
	}
	return domain.Book{}, &BookNotFoundError{Ref: ref}
}

// GetOrderDetail joins an order with its customer and items.
func (m *MemoryStore) GetOrderDetail(orderID int) (domain.OrderDetail, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.OrderDetail{}, false, nil
	}
	customer := m.customers[order.CustomerID]
	items := make([]domain.OrderDetailItem, 0, len(m.items[orderID]))
	for _, row := range m.items[orderID] {
		book := m.books[row.ISBN]
		items = append(items, domain.OrderDetailItem{
			ISBN:            row.ISBN,
			Title:           book.Title,
			Author:          book.Author,
			Qty:             row.Qty,
			PriceAtPurchase: row.PriceAtPurchase,
		})
	}
	return domain.OrderDetail{
		OrderID:       order.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt,
		Items:         items,
	}, true, nil
}

// AppendMessage records a chat message.
func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

// ListMessages returns non-system messages in insertion order.
func (m *MemoryStore) ListMessages(sessionID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Message, 0)
	for _, msg := range m.messages[sessionID] {
		if msg.Role == domain.RoleSystem {
			continue
		}
		res = append(res, msg)
	}
	return res, nil
}

// ListSessions returns known sessions newest-first by first message time.
func (m *MemoryStore) ListSessions() ([]domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.SessionInfo, 0, len(m.messages))
	for id, msgs := range m.messages {
		if len(msgs) == 0 {
			continue
		}
		res = append(res, domain.SessionInfo{SessionID: id, CreatedAt: msgs[0].CreatedAt})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// DeleteSession removes a session's messages and audit records.
func (m *MemoryStore) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, sessionID)
	delete(m.toolCalls, sessionID)
	return nil
}

// AppendToolCall records an audit entry.
func (m *MemoryStore) AppendToolCall(rec domain.ToolCallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[rec.SessionID] = append(m.toolCalls[rec.SessionID], rec)
	return nil
}

// ListToolCalls returns a session's audit entries in insertion order.
func (m *MemoryStore) ListToolCalls(sessionID string) ([]domain.ToolCallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.ToolCallRecord, 0, len(m.toolCalls[sessionID]))
	res = append(res, m.toolCalls[sessionID]...)
	return res, nil
}

func (m *MemoryStore) sortedISBNs() []string {
	isbns := make([]string, 0, len(m.books))
	for isbn := range m.books {
		isbns = append(isbns, isbn)
	}
	sort.Strings(isbns)
	return isbns
}

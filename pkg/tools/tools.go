package tools

import (
	"fmt"
	"strings"
	"time"

	"librarydesk/pkg/domain"
	"librarydesk/pkg/store"
)

type findBooksArgs struct {
	Q  string `json:"q"`
	By string `json:"by"`
}

// findBooks returns the matching books as a bare list; zero matches is an
// empty list, not an error.
func (r *Registry) findBooks(args map[string]any) (any, error) {
	var in findBooksArgs
	if err := decodeArgs(args, &in); err != nil {
		return failuref("invalid arguments: %v", err), nil
	}
	by := domain.SearchField(strings.TrimSpace(in.By))
	switch by {
	case "":
		by = domain.SearchByTitle
	case domain.SearchByTitle, domain.SearchByAuthor:
	default:
		return failure(`by must be "title" or "author"`), nil
	}
	books, err := r.store.SearchBooks(in.Q, by)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

type createOrderArgs struct {
	CustomerID int                     `json:"customer_id"`
	Items      []domain.OrderItemInput `json:"items"`
}

// CreateOrderResult confirms a created order with resolved titles and the
// price snapshots taken at creation time.
type CreateOrderResult struct {
	Success    bool             `json:"success"`
	OrderID    int              `json:"order_id"`
	CustomerID int              `json:"customer_id"`
	Items      []orderLineBrief `json:"items"`
	Message    string           `json:"message"`
}

type orderLineBrief struct {
	Title string  `json:"title"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

func (r *Registry) createOrder(args map[string]any) (any, error) {
	var in createOrderArgs
	if err := decodeArgs(args, &in); err != nil {
		return failuref("invalid arguments: %v", err), nil
	}
	if in.CustomerID <= 0 {
		return failure("customer_id is required"), nil
	}
	if len(in.Items) == 0 {
		return failure("items are required"), nil
	}
	for _, item := range in.Items {
		if item.Qty <= 0 {
			return failure("item qty must be a positive integer"), nil
		}
	}
	conf, err := r.store.CreateOrder(in.CustomerID, in.Items)
	if err != nil {
		if store.IsDomainError(err) {
			return failure(err.Error()), nil
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	items := make([]orderLineBrief, 0, len(conf.Items))
	for _, line := range conf.Items {
		items = append(items, orderLineBrief{Title: line.Title, Qty: line.Qty, Price: line.Price})
	}
	return CreateOrderResult{
		Success:    true,
		OrderID:    conf.OrderID,
		CustomerID: conf.CustomerID,
		Items:      items,
		Message:    fmt.Sprintf("Order #%d created successfully", conf.OrderID),
	}, nil
}

type restockArgs struct {
	ISBN string `json:"isbn"`
	Qty  int    `json:"qty"`
}

// RestockResult reports the stock level after an additive restock.
type RestockResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"title"`
	NewStock int    `json:"new_stock"`
	Message  string `json:"message"`
}

func (r *Registry) restockBook(args map[string]any) (any, error) {
	var in restockArgs
	if err := decodeArgs(args, &in); err != nil {
		return failuref("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(in.ISBN) == "" {
		return failure("isbn is required"), nil
	}
	if in.Qty <= 0 {
		return failure("qty must be a positive integer"), nil
	}
	book, found, err := r.store.RestockBook(strings.TrimSpace(in.ISBN), in.Qty)
	if err != nil {
		return nil, fmt.Errorf("restock book: %w", err)
	}
	if !found {
		return failure("Book not found"), nil
	}
	return RestockResult{
		Success:  true,
		Title:    book.Title,
		NewStock: book.Stock,
		Message:  fmt.Sprintf("Added %d copies of %q. New stock: %d", in.Qty, book.Title, book.Stock),
	}, nil
}

type updatePriceArgs struct {
	ISBN  string  `json:"isbn"`
	Price float64 `json:"price"`
}

// UpdatePriceResult reports an absolute price replacement.
type UpdatePriceResult struct {
	Success  bool    `json:"success"`
	Title    string  `json:"title"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
	Message  string  `json:"message"`
}

func (r *Registry) updatePrice(args map[string]any) (any, error) {
	var in updatePriceArgs
	if err := decodeArgs(args, &in); err != nil {
		return failuref("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(in.ISBN) == "" {
		return failure("isbn is required"), nil
	}
	if in.Price < 0 {
		return failure("price must be non-negative"), nil
	}
	oldPrice, book, found, err := r.store.SetPrice(strings.TrimSpace(in.ISBN), in.Price)
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}
	if !found {
		return failure("Book not found"), nil
	}
	return UpdatePriceResult{
		Success:  true,
		Title:    book.Title,
		OldPrice: oldPrice,
		NewPrice: book.Price,
		Message:  fmt.Sprintf("Updated price of %q from %g to %g", book.Title, oldPrice, book.Price),
	}, nil
}

type orderStatusArgs struct {
	OrderID int `json:"order_id"`
}

// OrderStatusResult joins an order with its customer and line items; Total is
// sum(qty x price_at_purchase) over the snapshots, independent of current
// book prices.
type OrderStatusResult struct {
	Success       bool                     `json:"success"`
	OrderID       int                      `json:"order_id"`
	CustomerName  string                   `json:"customer_name"`
	CustomerEmail string                   `json:"customer_email"`
	Status        domain.OrderStatus       `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
	Items         []domain.OrderDetailItem `json:"items"`
	Total         string                   `json:"total"`
}

func (r *Registry) orderStatus(args map[string]any) (any, error) {
	var in orderStatusArgs
	if err := decodeArgs(args, &in); err != nil {
		return failuref("invalid arguments: %v", err), nil
	}
	if in.OrderID <= 0 {
		return failure("order_id is required"), nil
	}
	detail, found, err := r.store.GetOrderDetail(in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("order status: %w", err)
	}
	if !found {
		return failure("Order not found"), nil
	}
	total := 0.0
	for _, item := range detail.Items {
		total += float64(item.Qty) * item.PriceAtPurchase
	}
	return OrderStatusResult{
		Success:       true,
		OrderID:       detail.OrderID,
		CustomerName:  detail.CustomerName,
		CustomerEmail: detail.CustomerEmail,
		Status:        detail.Status,
		CreatedAt:     detail.CreatedAt,
		Items:         detail.Items,
		Total:         fmt.Sprintf("%.2f", total),
	}, nil
}

// InventorySummaryResult lists low-stock books plus catalog aggregates.
type InventorySummaryResult struct {
	Success       bool          `json:"success"`
	LowStockBooks []domain.Book `json:"low_stock_books"`
	TotalTitles   int           `json:"total_titles"`
	TotalStock    int           `json:"total_stock"`
	Message       string        `json:"message"`
}

func (r *Registry) inventorySummary(map[string]any) (any, error) {
	lowStock, err := r.store.LowStockBooks(LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("low stock books: %w", err)
	}
	titles, units, err := r.store.InventoryTotals()
	if err != nil {
		return nil, fmt.Errorf("inventory totals: %w", err)
	}
	return InventorySummaryResult{
		Success:       true,
		LowStockBooks: lowStock,
		TotalTitles:   titles,
		TotalStock:    units,
		Message:       fmt.Sprintf("%d books have low stock (less than %d)", len(lowStock), LowStockThreshold),
	}, nil
}

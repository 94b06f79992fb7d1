package tools

import (
	"testing"

	"librarydesk/pkg/domain"
	"librarydesk/pkg/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	books := []domain.Book{
		{ISBN: "978-0-13-468599-1", Title: "The Pragmatic Programmer", Author: "David Thomas", Price: 39.99, Stock: 12},
		{ISBN: "978-0-201-61622-4", Title: "The Mythical Man-Month", Author: "Fred Brooks", Price: 29.50, Stock: 3},
		{ISBN: "978-0-596-51774-8", Title: "JavaScript: The Good Parts", Author: "Douglas Crockford", Price: 24.99, Stock: 7},
	}
	for _, b := range books {
		if err := st.SaveBook(b); err != nil {
			t.Fatalf("seed book: %v", err)
		}
	}
	if err := st.SaveCustomer(domain.Customer{ID: 1, Name: "Alice Johnson", Email: "alice@example.com"}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return NewRegistry(st), st
}

func TestFindBooksCaseInsensitive(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolFindBooks, map[string]any{"q": "PRAGMATIC"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	books, ok := res.([]domain.Book)
	if !ok {
		t.Fatalf("result = %T, want []domain.Book", res)
	}
	if len(books) != 1 || books[0].ISBN != "978-0-13-468599-1" {
		t.Fatalf("books = %+v", books)
	}
}

func TestFindBooksByAuthor(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolFindBooks, map[string]any{"q": "brooks", "by": "author"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	books := res.([]domain.Book)
	if len(books) != 1 || books[0].Title != "The Mythical Man-Month" {
		t.Fatalf("books = %+v", books)
	}
}

func TestFindBooksInvalidField(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolFindBooks, map[string]any{"q": "x", "by": "isbn"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f, ok := res.(Failure); !ok || f.Success {
		t.Fatalf("result = %+v, want failure", res)
	}
}

func TestFindBooksNoMatches(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolFindBooks, map[string]any{"q": "nonexistent"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	books := res.([]domain.Book)
	if len(books) != 0 {
		t.Fatalf("books = %+v, want empty", books)
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	r, st := newTestRegistry(t)
	res, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 1,
		"items":       []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": 2}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := res.(CreateOrderResult)
	if !ok || !out.Success {
		t.Fatalf("result = %+v", res)
	}
	if out.Message != "Order #1 created successfully" {
		t.Fatalf("message = %q", out.Message)
	}
	book, _, _ := st.GetBook("978-0-13-468599-1")
	if book.Stock != 10 {
		t.Fatalf("stock = %d, want 10", book.Stock)
	}
}

func TestCreateOrderByTitle(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 1,
		"items":       []any{map[string]any{"title": "mythical", "qty": 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := res.(CreateOrderResult)
	if len(out.Items) != 1 || out.Items[0].Title != "The Mythical Man-Month" {
		t.Fatalf("items = %+v", out.Items)
	}
}

func TestCreateOrderInsufficientStockIsAtomic(t *testing.T) {
	r, st := newTestRegistry(t)
	res, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 1,
		"items": []any{
			map[string]any{"isbn": "978-0-13-468599-1", "qty": 2},
			map[string]any{"isbn": "978-0-201-61622-4", "qty": 99},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	f, ok := res.(Failure)
	if !ok || f.Success {
		t.Fatalf("result = %+v, want failure", res)
	}
	if f.Error != `Insufficient stock for "The Mythical Man-Month". Available: 3, Requested: 99` {
		t.Fatalf("error = %q", f.Error)
	}
	// The first line must not have been applied.
	book, _, _ := st.GetBook("978-0-13-468599-1")
	if book.Stock != 12 {
		t.Fatalf("stock = %d, want 12 after rollback", book.Stock)
	}
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 42,
		"items":       []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f, ok := res.(Failure); !ok || f.Success {
		t.Fatalf("result = %+v, want failure", res)
	}
}

func TestCreateOrderUnknownBook(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 1,
		"items":       []any{map[string]any{"isbn": "000-0-00-000000-0", "qty": 1}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	f := res.(Failure)
	if f.Error != `Book "000-0-00-000000-0" not found in inventory` {
		t.Fatalf("error = %q", f.Error)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	cases := []map[string]any{
		{"items": []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": 1}}},
		{"customer_id": 1},
		{"customer_id": 1, "items": []any{}},
		{"customer_id": 1, "items": []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": 0}}},
		{"customer_id": 1, "items": []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": -2}}},
	}
	for i, args := range cases {
		res, err := r.Execute(ToolCreateOrder, args)
		if err != nil {
			t.Fatalf("case %d: execute: %v", i, err)
		}
		if f, ok := res.(Failure); !ok || f.Success {
			t.Fatalf("case %d: result = %+v, want failure", i, res)
		}
	}
}

func TestRestockBook(t *testing.T) {
	r, st := newTestRegistry(t)
	res, err := r.Execute(ToolRestockBook, map[string]any{"isbn": "978-0-201-61622-4", "qty": 5})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := res.(RestockResult)
	if !ok || !out.Success {
		t.Fatalf("result = %+v", res)
	}
	if out.NewStock != 8 {
		t.Fatalf("new_stock = %d, want 8", out.NewStock)
	}
	if out.Message != `Added 5 copies of "The Mythical Man-Month". New stock: 8` {
		t.Fatalf("message = %q", out.Message)
	}
	// Other titles are untouched.
	other, _, _ := st.GetBook("978-0-13-468599-1")
	if other.Stock != 12 {
		t.Fatalf("other stock = %d, want 12", other.Stock)
	}
}

func TestRestockBookNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolRestockBook, map[string]any{"isbn": "missing", "qty": 1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	f := res.(Failure)
	if f.Error != "Book not found" {
		t.Fatalf("error = %q", f.Error)
	}
}

func TestRestockBookRejectsNonPositiveQty(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, qty := range []int{0, -3} {
		res, err := r.Execute(ToolRestockBook, map[string]any{"isbn": "978-0-201-61622-4", "qty": qty})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if f, ok := res.(Failure); !ok || f.Success {
			t.Fatalf("qty %d: result = %+v, want failure", qty, res)
		}
	}
}

func TestUpdatePrice(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolUpdatePrice, map[string]any{"isbn": "978-0-596-51774-8", "price": 19.99})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := res.(UpdatePriceResult)
	if !ok || !out.Success {
		t.Fatalf("result = %+v", res)
	}
	if out.OldPrice != 24.99 || out.NewPrice != 19.99 {
		t.Fatalf("prices = %g -> %g", out.OldPrice, out.NewPrice)
	}
}

func TestUpdatePriceRejectsNegative(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolUpdatePrice, map[string]any{"isbn": "978-0-596-51774-8", "price": -1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f, ok := res.(Failure); !ok || f.Success {
		t.Fatalf("result = %+v, want failure", res)
	}
}

func TestOrderStatusUsesPriceSnapshot(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Execute(ToolCreateOrder, map[string]any{
		"customer_id": 1,
		"items":       []any{map[string]any{"isbn": "978-0-13-468599-1", "qty": 2}},
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	// Changing the list price must not change the order total.
	if _, err := r.Execute(ToolUpdatePrice, map[string]any{"isbn": "978-0-13-468599-1", "price": 99.99}); err != nil {
		t.Fatalf("update price: %v", err)
	}
	res, err := r.Execute(ToolOrderStatus, map[string]any{"order_id": 1})
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	out, ok := res.(OrderStatusResult)
	if !ok || !out.Success {
		t.Fatalf("result = %+v", res)
	}
	if out.Total != "79.98" {
		t.Fatalf("total = %q, want 79.98", out.Total)
	}
	if out.CustomerName != "Alice Johnson" || out.Status != domain.OrderPending {
		t.Fatalf("result = %+v", out)
	}
	if len(out.Items) != 1 || out.Items[0].PriceAtPurchase != 39.99 {
		t.Fatalf("items = %+v", out.Items)
	}
}

func TestOrderStatusNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolOrderStatus, map[string]any{"order_id": 99})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	f := res.(Failure)
	if f.Error != "Order not found" {
		t.Fatalf("error = %q", f.Error)
	}
}

func TestInventorySummary(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute(ToolInventorySummary, map[string]any{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := res.(InventorySummaryResult)
	if !ok || !out.Success {
		t.Fatalf("result = %+v", res)
	}
	if out.TotalTitles != 3 || out.TotalStock != 22 {
		t.Fatalf("totals = %d titles, %d units", out.TotalTitles, out.TotalStock)
	}
	// Books below the threshold, ascending by stock.
	if len(out.LowStockBooks) != 2 {
		t.Fatalf("low stock = %+v", out.LowStockBooks)
	}
	if out.LowStockBooks[0].Stock > out.LowStockBooks[1].Stock {
		t.Fatalf("low stock not ascending: %+v", out.LowStockBooks)
	}
	if out.Message != "2 books have low stock (less than 10)" {
		t.Fatalf("message = %q", out.Message)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)
	res, err := r.Execute("delete_everything", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	out, ok := res.(UnknownTool)
	if !ok {
		t.Fatalf("result = %T", res)
	}
	if out.Error != "Tool delete_everything not found" {
		t.Fatalf("error = %q", out.Error)
	}
}

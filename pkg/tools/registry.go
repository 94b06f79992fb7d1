package tools

import (
	"encoding/json"
	"fmt"

	"librarydesk/pkg/store"
)

// Tool names form a closed set; dispatch is a fixed map, not dynamic lookup.
const (
	ToolFindBooks        = "find_books"
	ToolCreateOrder      = "create_order"
	ToolRestockBook      = "restock_book"
	ToolUpdatePrice      = "update_price"
	ToolOrderStatus      = "order_status"
	ToolInventorySummary = "inventory_summary"
)

// LowStockThreshold is the stock level below which a book appears in the
// inventory summary.
const LowStockThreshold = 10

type handler func(args map[string]any) (any, error)

// Registry maps the six tool names to their handlers. Every handler returns a
// plain result value; expected domain failures are {success:false, error}
// values, and the error return carries storage faults only.
type Registry struct {
	store    store.Store
	handlers map[string]handler
}

// NewRegistry builds the fixed tool table over the given store.
func NewRegistry(st store.Store) *Registry {
	r := &Registry{store: st}
	r.handlers = map[string]handler{
		ToolFindBooks:        r.findBooks,
		ToolCreateOrder:      r.createOrder,
		ToolRestockBook:      r.restockBook,
		ToolUpdatePrice:      r.updatePrice,
		ToolOrderStatus:      r.orderStatus,
		ToolInventorySummary: r.inventorySummary,
	}
	return r
}

// UnknownTool is the result value for a lookup miss; an unknown name is not a
// fault.
type UnknownTool struct {
	Error string `json:"error"`
}

// Execute runs the named tool. Unknown names yield an UnknownTool value and
// no side effects.
func (r *Registry) Execute(name string, args map[string]any) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return UnknownTool{Error: fmt.Sprintf("Tool %s not found", name)}, nil
	}
	return h(args)
}

// Failure is the shared shape of an expected domain failure.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failure(msg string) Failure {
	return Failure{Success: false, Error: msg}
}

func failuref(format string, args ...any) Failure {
	return failure(fmt.Sprintf(format, args...))
}

// decodeArgs converts loosely-typed model args into a tool's arg struct via a
// JSON round-trip. A mismatch (e.g. fractional qty) is a decode error the
// caller reports as a domain failure.
func decodeArgs(args map[string]any, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"librarydesk/pkg/domain"
)

const migrateLockID int64 = 52110934

// GormStore implements Store using GORM + Postgres. It is constructed once at
// process start and shared by reference; there is no lazily-initialized
// global handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&BookModel{},
			&CustomerModel{},
			&OrderModel{},
			&OrderItemModel{},
			&MessageModel{},
			&ToolCallModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveBook stores or updates a book by ISBN.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "isbn"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "price", "stock"}),
	}).Create(&model).Error
}

// GetBook retrieves a book by exact ISBN.
func (s *GormStore) GetBook(isbn string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "isbn = ?", isbn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// SearchBooks returns books whose title or author contains q,
// case-insensitively, ordered by ISBN.
func (s *GormStore) SearchBooks(q string, by domain.SearchField) ([]domain.Book, error) {
	column := "title"
	if by == domain.SearchByAuthor {
		column = "author"
	}
	var models []BookModel
	if err := s.db.
		Where(fmt.Sprintf("lower(%s) LIKE ?", column), likePattern(q)).
		Order("isbn ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(models))
	for _, m := range models {
		books = append(books, bookFromModel(m))
	}
	return books, nil
}

// RestockBook adds qty to a book's stock and returns the updated book. The
// row is locked so concurrent restocks and orders serialize.
func (s *GormStore) RestockBook(isbn string, qty int) (domain.Book, bool, error) {
	var updated domain.Book
	found := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model BookModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "isbn = ?", isbn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		model.Stock += qty
		if err := tx.Model(&BookModel{}).Where("isbn = ?", isbn).
			Update("stock", model.Stock).Error; err != nil {
			return err
		}
		found = true
		updated = bookFromModel(model)
		return nil
	})
	return updated, found, err
}

// SetPrice replaces a book's price and returns the previous one.
func (s *GormStore) SetPrice(isbn string, price float64) (float64, domain.Book, bool, error) {
	var (
		oldPrice float64
		updated  domain.Book
		found    bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model BookModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "isbn = ?", isbn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		oldPrice = model.Price
		model.Price = price
		if err := tx.Model(&BookModel{}).Where("isbn = ?", isbn).
			Update("price", price).Error; err != nil {
			return err
		}
		found = true
		updated = bookFromModel(model)
		return nil
	})
	return oldPrice, updated, found, err
}

// LowStockBooks returns books with stock below threshold, ascending by stock.
func (s *GormStore) LowStockBooks(threshold int) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Where("stock < ?", threshold).Order("stock ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(models))
	for _, m := range models {
		books = append(books, bookFromModel(m))
	}
	return books, nil
}

// InventoryTotals returns the catalog title count and total stock units.
func (s *GormStore) InventoryTotals() (int, int, error) {
	var titles int64
	if err := s.db.Model(&BookModel{}).Count(&titles).Error; err != nil {
		return 0, 0, err
	}
	var units int64
	if err := s.db.Model(&BookModel{}).
		Select("COALESCE(SUM(stock), 0)").Scan(&units).Error; err != nil {
		return 0, 0, err
	}
	return int(titles), int(units), nil
}

// SaveCustomer stores or updates a customer.
func (s *GormStore) SaveCustomer(c domain.Customer) error {
	model := customerToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email"}),
	}).Create(&model).Error
}

// GetCustomer retrieves a customer by ID.
func (s *GormStore) GetCustomer(id int) (domain.Customer, bool, error) {
	var model CustomerModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Customer{}, false, nil
		}
		return domain.Customer{}, false, err
	}
	return customerFromModel(model), true, nil
}

// CreateOrder resolves every item, validates stock, and writes the order, its
// items, and the stock decrements in one transaction. Book rows are locked
// with SELECT ... FOR UPDATE so concurrent orders against the same ISBN
// serialize; any failure rolls back everything.
func (s *GormStore) CreateOrder(customerID int, items []domain.OrderItemInput) (domain.OrderConfirmation, error) {
	var conf domain.OrderConfirmation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var customer CustomerModel
		if err := tx.First(&customer, "id = ?", customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		lines := make([]domain.OrderLine, 0, len(items))
		for _, item := range items {
			book, err := resolveBookLocked(tx, item)
			if err != nil {
				return err
			}
			if book.Stock < item.Qty {
				return &InsufficientStockError{
					Title:     book.Title,
					Available: book.Stock,
					Requested: item.Qty,
				}
			}
			// Decrement inside the loop; the transaction rolls every line
			// back if a later one fails.
			if err := tx.Model(&BookModel{}).Where("isbn = ?", book.ISBN).
				Update("stock", gorm.Expr("stock - ?", item.Qty)).Error; err != nil {
				return err
			}
			lines = append(lines, domain.OrderLine{
				ISBN:  book.ISBN,
				Title: book.Title,
				Qty:   item.Qty,
				Price: book.Price,
			})
		}

		order := OrderModel{
			CustomerID: customerID,
			Status:     string(domain.OrderPending),
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, line := range lines {
			itemRow := OrderItemModel{
				OrderID:         order.ID,
				ISBN:            line.ISBN,
				Qty:             line.Qty,
				PriceAtPurchase: line.Price,
			}
			if err := tx.Create(&itemRow).Error; err != nil {
				return err
			}
		}
		conf = domain.OrderConfirmation{
			OrderID:    order.ID,
			CustomerID: customerID,
			Items:      lines,
		}
		return nil
	})
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	return conf, nil
}

// resolveBookLocked finds the book an order item refers to, preferring exact
// ISBN and falling back to the first case-insensitive title-substring match.
// When several titles share the substring the lowest ISBN wins; no better
// tie-break rule is defined.
func resolveBookLocked(tx *gorm.DB, item domain.OrderItemInput) (BookModel, error) {
	var book BookModel
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if strings.TrimSpace(item.ISBN) != "" {
		if err := locked.First(&book, "isbn = ?", strings.TrimSpace(item.ISBN)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return BookModel{}, &BookNotFoundError{Ref: item.ISBN}
			}
			return BookModel{}, err
		}
		return book, nil
	}
	ref := strings.TrimSpace(item.Title)
	if ref == "" {
		return BookModel{}, &BookNotFoundError{Ref: "unknown"}
	}
	if err := locked.Where("lower(title) LIKE ?", likePattern(ref)).
		Order("isbn ASC").First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BookModel{}, &BookNotFoundError{Ref: ref}
		}
		return BookModel{}, err
	}
	return book, nil
}

// GetOrderDetail joins an order with its customer and line items.
func (s *GormStore) GetOrderDetail(orderID int) (domain.OrderDetail, bool, error) {
	var order OrderModel
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.OrderDetail{}, false, nil
		}
		return domain.OrderDetail{}, false, err
	}
	var customer CustomerModel
	if err := s.db.First(&customer, "id = ?", order.CustomerID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.OrderDetail{}, false, err
		}
	}
	var itemRows []OrderItemModel
	if err := s.db.Where("order_id = ?", orderID).Order("id ASC").Find(&itemRows).Error; err != nil {
		return domain.OrderDetail{}, false, err
	}
	items := make([]domain.OrderDetailItem, 0, len(itemRows))
	for _, row := range itemRows {
		var book BookModel
		if err := s.db.First(&book, "isbn = ?", row.ISBN).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.OrderDetail{}, false, err
			}
		}
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
		Status:        domain.OrderStatus(order.Status),
		CreatedAt:     order.CreatedAt,
		Items:         items,
	}, true, nil
}

// AppendMessage records a chat message.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns a session's messages in chronological order,
// excluding system rows.
func (s *GormStore) ListMessages(sessionID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.
		Where("session_id = ? AND role <> ?", sessionID, string(domain.RoleSystem)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msgs = append(msgs, messageFromModel(m))
	}
	return msgs, nil
}

// ListSessions returns every known session with its first-seen time, newest
// first. Sessions are materialized through their messages.
func (s *GormStore) ListSessions() ([]domain.SessionInfo, error) {
	type row struct {
		SessionID string
		CreatedAt time.Time
	}
	var rows []row
	if err := s.db.Model(&MessageModel{}).
		Select("session_id, MIN(created_at) AS created_at").
		Group("session_id").
		Order("created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]domain.SessionInfo, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, domain.SessionInfo{SessionID: r.SessionID, CreatedAt: r.CreatedAt})
	}
	return sessions, nil
}

// DeleteSession removes a session's messages and tool-call records.
func (s *GormStore) DeleteSession(sessionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&MessageModel{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.Delete(&ToolCallModel{}, "session_id = ?", sessionID).Error
	})
}

// AppendToolCall records one tool invocation for audit.
func (s *GormStore) AppendToolCall(rec domain.ToolCallRecord) error {
	model := toolCallToModel(rec)
	return s.db.Create(&model).Error
}

// ListToolCalls returns a session's audit records in insertion order.
func (s *GormStore) ListToolCalls(sessionID string) ([]domain.ToolCallRecord, error) {
	var models []ToolCallModel
	if err := s.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	recs := make([]domain.ToolCallRecord, 0, len(models))
	for _, m := range models {
		recs = append(recs, toolCallFromModel(m))
	}
	return recs, nil
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ISBN:   b.ISBN,
		Title:  b.Title,
		Author: b.Author,
		Price:  b.Price,
		Stock:  b.Stock,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ISBN:   m.ISBN,
		Title:  m.Title,
		Author: m.Author,
		Price:  m.Price,
		Stock:  m.Stock,
	}
}

func customerToModel(c domain.Customer) CustomerModel {
	return CustomerModel{ID: c.ID, Name: c.Name, Email: c.Email}
}

func customerFromModel(m CustomerModel) domain.Customer {
	return domain.Customer{ID: m.ID, Name: m.Name, Email: m.Email}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      domain.MessageRole(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toolCallToModel(rec domain.ToolCallRecord) ToolCallModel {
	return ToolCallModel{
		ID:         rec.ID,
		SessionID:  rec.SessionID,
		Name:       rec.Name,
		ArgsJSON:   rec.Args,
		ResultJSON: rec.Result,
		CreatedAt:  rec.CreatedAt,
	}
}

func toolCallFromModel(m ToolCallModel) domain.ToolCallRecord {
	return domain.ToolCallRecord{
		ID:        m.ID,
		SessionID: m.SessionID,
		Name:      m.Name,
		Args:      []byte(m.ArgsJSON),
		Result:    []byte(m.ResultJSON),
		CreatedAt: m.CreatedAt,
	}
}

package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trade-journal-go/internal/models"

	"go.uber.org/zap"
)

const (
	tradesKey = "trades"
	todosKey  = "todos"
)

// ErrEmptyTodo is returned when a todo has no text.
var ErrEmptyTodo = errors.New("todo text is required")

// Store persists whole collections as JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Book owns the trade and todo collections. Every mutation writes the
// whole collection back to the store before returning.
type Book struct {
	mu         sync.RWMutex
	store      Store
	normalizer *Normalizer
	logger     *zap.Logger
	trades     []models.Trade
	todos      []models.Todo
	version    uint64
	now        func() time.Time
}

// NewBook creates an empty Book. Call Load to read the stored collections.
func NewBook(store Store, normalizer *Normalizer, logger *zap.Logger) *Book {
	return &Book{
		store:      store,
		normalizer: normalizer,
		logger:     logger.Named("book"),
		now:        time.Now,
	}
}

// Load replaces the in-memory collections with the stored ones. Missing
// keys load as empty collections.
func (b *Book) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var trades []models.Trade
	if err := b.read(ctx, tradesKey, &trades); err != nil {
		return err
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	for i := range trades {
		trades[i].ApplyDefaults()
	}

	var todos []models.Todo
	if err := b.read(ctx, todosKey, &todos); err != nil {
		return err
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	b.trades = trades
	b.todos = todos
	b.version++
	b.logger.Info("Journal loaded", zap.Int("trades", len(trades)), zap.Int("todos", len(todos)))
	return nil
}

// Save writes both collections.
func (b *Book) Save(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.write(ctx, tradesKey, b.trades); err != nil {
		return err
	}
	return b.write(ctx, todosKey, b.todos)
}

// Add normalizes raw and prepends the trade. The collection is left as it
// was if validation or persistence fails.
func (b *Book) Add(ctx context.Context, raw RawTradeInput) (models.Trade, error) {
	trade, err := b.normalizer.Normalize(raw)
	if err != nil {
		return models.Trade{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	trade.ID = b.uniqueTradeID(trade.ID)
	next := make([]models.Trade, 0, len(b.trades)+1)
	next = append(next, trade)
	next = append(next, b.trades...)

	if err := b.write(ctx, tradesKey, next); err != nil {
		return models.Trade{}, err
	}
	b.trades = next
	b.version++

	b.logger.Info("Trade added",
		zap.Int64("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("status", string(trade.Status)),
		zap.Float64("pnl", trade.PnL),
	)
	return trade, nil
}

// Remove deletes the trade with id. Removing an unknown id is a no-op and
// reports false.
func (b *Book) Remove(ctx context.Context, id int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Trade, 0, len(b.trades))
	for _, t := range b.trades {
		if t.ID != id {
			next = append(next, t)
		}
	}
	if len(next) == len(b.trades) {
		return false, nil
	}

	if err := b.write(ctx, tradesKey, next); err != nil {
		return false, err
	}
	b.trades = next
	b.version++
	b.logger.Info("Trade removed", zap.Int64("trade_id", id))
	return true, nil
}

// Restore replaces the whole trade collection, e.g. from an exported
// browser journal. Duplicate ids and records failing CheckRecord are
// rejected before anything is written.
func (b *Book) Restore(ctx context.Context, trades []models.Trade) error {
	seen := make(map[int64]struct{}, len(trades))
	next := make([]models.Trade, len(trades))
	for i, t := range trades {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidTrade, t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := CheckRecord(&t, fmt.Sprintf("trades[%d].", i)); err != nil {
			return err
		}
		next[i] = t
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.write(ctx, tradesKey, next); err != nil {
		return err
	}
	b.trades = next
	b.version++
	b.logger.Info("Trades restored", zap.Int("trades", len(next)))
	return nil
}

// List returns a copy of the trades, newest first.
func (b *Book) List() []models.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Version increases on every successful mutation.
func (b *Book) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// AddTodo appends a todo item.
func (b *Book) AddTodo(ctx context.Context, text string) (models.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Todo{}, ErrEmptyTodo
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	todo := models.Todo{ID: b.uniqueTodoID(b.now().UnixMilli()), Text: text}
	next := append(append(make([]models.Todo, 0, len(b.todos)+1), b.todos...), todo)
	if err := b.write(ctx, todosKey, next); err != nil {
		return models.Todo{}, err
	}
	b.todos = next
	return todo, nil
}

// ToggleTodo flips the completed flag. ok is false for an unknown id.
func (b *Book) ToggleTodo(ctx context.Context, id int64) (todo models.Todo, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Todo, len(b.todos))
	copy(next, b.todos)
	for i := range next {
		if next[i].ID == id {
			next[i].Completed = !next[i].Completed
			if err := b.write(ctx, todosKey, next); err != nil {
				return models.Todo{}, false, err
			}
			b.todos = next
			return next[i], true, nil
		}
	}
	return models.Todo{}, false, nil
}

// RemoveTodo deletes a todo. Unknown ids are a no-op.
func (b *Book) RemoveTodo(ctx context.Context, id int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]models.Todo, 0, len(b.todos))
	for _, todo := range b.todos {
		if todo.ID != id {
			next = append(next, todo)
		}
	}
	if len(next) == len(b.todos) {
		return false, nil
	}
	if err := b.write(ctx, todosKey, next); err != nil {
		return false, err
	}
	b.todos = next
	return true, nil
}

// Todos returns a copy of the todo list in creation order.
func (b *Book) Todos() []models.Todo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Todo, len(b.todos))
	copy(out, b.todos)
	return out
}

// uniqueTradeID bumps a millisecond id until it is free. Caller holds mu.
func (b *Book) uniqueTradeID(id int64) int64 {
	taken := make(map[int64]struct{}, len(b.trades))
	for _, t := range b.trades {
		taken[t.ID] = struct{}{}
	}
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		id++
	}
}

func (b *Book) uniqueTodoID(id int64) int64 {
	taken := make(map[int64]struct{}, len(b.todos))
	for _, t := range b.todos {
		taken[t.ID] = struct{}{}
	}
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		id++
	}
}

func (b *Book) read(ctx context.Context, key string, out any) error {
	data, ok, err := b.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (b *Book) write(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := b.store.Put(ctx, key, data); err != nil {
		b.logger.Error("Failed to persist collection", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

package context

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const (
	TRANSACTION_KEY contextKey = "transaction"
	USER_ID_KEY     contextKey = "userID"
)

type transactionScope struct {
	tx          *gorm.DB
	mutex       sync.Mutex
	afterCommit []func()
}

// GetTransaction retrieves a transaction from the context
func GetTransaction(ctx context.Context) (*gorm.DB, bool) {
	scope, ok := ctx.Value(TRANSACTION_KEY).(*transactionScope)
	if !ok {
		return nil, false
	}
	return scope.tx, true
}

// WithTransaction opens a transaction scope. Callbacks registered through
// AfterCommit inside the scope run only when RunAfterCommit is called.
func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TRANSACTION_KEY, &transactionScope{tx: tx})
}

// AfterCommit defers fn until the enclosing transaction commits. Outside a
// transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	scope, ok := ctx.Value(TRANSACTION_KEY).(*transactionScope)
	if !ok {
		fn()
		return
	}

	scope.mutex.Lock()
	scope.afterCommit = append(scope.afterCommit, fn)
	scope.mutex.Unlock()
}

func RunAfterCommit(ctx context.Context) {
	scope, ok := ctx.Value(TRANSACTION_KEY).(*transactionScope)
	if !ok {
		return
	}

	scope.mutex.Lock()
	callbacks := scope.afterCommit
	scope.afterCommit = nil
	scope.mutex.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, USER_ID_KEY, id)
}

// GetUserID returns the authenticated caller, or nil for system writes
func GetUserID(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	id, ok := ctx.Value(USER_ID_KEY).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

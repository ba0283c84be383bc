package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestAfterCommit_RunsImmediatelyOutsideTransaction(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_DeferredInsideTransaction(t *testing.T) {
	tx := &gorm.DB{}
	ctx := WithTransaction(context.Background(), tx)

	got, ok := GetTransaction(ctx)
	assert.True(t, ok)
	assert.Same(t, tx, got)

	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	assert.Empty(t, order)

	RunAfterCommit(ctx)
	assert.Equal(t, []int{1, 2}, order)

	RunAfterCommit(ctx)
	assert.Equal(t, []int{1, 2}, order, "callbacks run once")
}

func TestGetTransaction_Missing(t *testing.T) {
	_, ok := GetTransaction(context.Background())
	assert.False(t, ok)
}

func TestUserID(t *testing.T) {
	assert.Nil(t, GetUserID(context.Background()))

	id := uuid.New()
	got := GetUserID(WithUserID(context.Background(), id))
	if assert.NotNil(t, got) {
		assert.Equal(t, id, *got)
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestTransactionRollsBackInReverse - a failing step undoes the earlier ones, newest first
func TestTransactionRollsBackInReverse(t *testing.T) {
	var calls []string
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			calls = append(calls, name)
			return err
		}
	}

	tx := NewTransaction(zap.NewNop())
	tx.AddOperation("a", record("a", nil))
	tx.AddCompensation("undo_a", record("undo_a", nil))
	tx.AddOperation("b", record("b", nil))
	tx.AddOperation("c", record("c", nil))
	tx.AddCompensation("undo_c", record("undo_c", errors.New("ignored")))
	tx.AddOperation("d", record("d", errors.New("boom")))

	err := tx.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 'd' failed")
	assert.Equal(t, []string{"a", "b", "c", "d", "undo_c", "undo_a"}, calls)
}

// TestTransactionCompensatesAfterCancel - rollback still runs once the caller's context is cancelled
func TestTransactionCompensatesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	compensated := false

	tx := NewTransaction(nil)
	tx.AddOperation("write", func(context.Context) error { return nil })
	tx.AddCompensation("restore", func(ctx context.Context) error {
		compensated = ctx.Err() == nil
		return nil
	})
	tx.AddOperation("fail", func(context.Context) error {
		cancel()
		return context.Canceled
	})

	err := tx.Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, compensated)
}

func TestTransactionSuccess(t *testing.T) {
	tx := NewTransaction(nil)
	n := 0
	tx.AddCompensation("orphan", func(context.Context) error { n = -1; return nil })
	tx.AddOperation("inc", func(context.Context) error { n++; return nil })

	require.NoError(t, tx.Execute(context.Background()))
	assert.Equal(t, 1, n)
}

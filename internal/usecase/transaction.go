package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Transaction runs a sequence of steps and, when one fails, undoes the steps
// that already ran by calling their compensations in reverse order.
type Transaction struct {
	steps []step
	log   *zap.Logger
}

type step struct {
	name       string
	fn         func(context.Context) error
	compName   string
	compensate func(context.Context) error
}

func NewTransaction(log *zap.Logger) *Transaction {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transaction{log: log}
}

func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.steps = append(t.steps, step{name: name, fn: fn})
}

// AddCompensation attaches an undo function to the last added operation.
func (t *Transaction) AddCompensation(name string, fn func(context.Context) error) {
	if len(t.steps) == 0 {
		return
	}
	last := &t.steps[len(t.steps)-1]
	last.compName = name
	last.compensate = fn
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, s := range t.steps {
		if err := s.fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w (rolled back %d operations)", s.name, err, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAtIndex int) {
	// compensations must run even if the request context is gone
	ctx = context.WithoutCancel(ctx)
	for i := failedAtIndex - 1; i >= 0; i-- {
		s := t.steps[i]
		if s.compensate == nil {
			continue
		}
		if err := s.compensate(ctx); err != nil {
			t.log.Error("compensation failed, data may be inconsistent",
				zap.String("compensation", s.compName),
				zap.String("operation", s.name),
				zap.Error(err))
		}
	}
}

package readably

import "time"

// budget is the wall-clock bound enforced around one run. The pipeline
// checks it at fixed checkpoints (post-parse, mid-scoring, pre-serialize)
// instead of relying on an external sandbox to cut execution off.
type budget struct {
	deadline time.Time
}

func newBudget(d time.Duration) *budget {
	if d <= 0 {
		return &budget{}
	}
	return &budget{deadline: time.Now().Add(d)}
}

func (b *budget) exceeded() bool {
	return !b.deadline.IsZero() && time.Now().After(b.deadline)
}

func (b *budget) check() error {
	if b.exceeded() {
		return ErrBudgetExceeded
	}
	return nil
}

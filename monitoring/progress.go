package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many instructions of a bounded run have retired.
type ProgressBar struct {
	mu sync.Mutex

	ID        string
	Name      string
	StartTime time.Time
	Total     uint64

	finished uint64
}

// ProgressStatus is a copy of a bar taken at one point in time.
type ProgressStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished counts amount more retired instructions. The count never
// goes past Total.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setFinished(b.finished + amount)
}

// SetFinished sets the number of retired instructions.
func (b *ProgressBar) SetFinished(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setFinished(n)
}

func (b *ProgressBar) setFinished(n uint64) {
	if n > b.Total {
		n = b.Total
	}

	b.finished = n
}

// Done tells if every instruction of the run has retired.
func (b *ProgressBar) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.finished == b.Total
}

// Status returns a copy of the bar.
func (b *ProgressBar) Status() ProgressStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return ProgressStatus{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.finished,
	}
}

package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []sales.Sale
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeStore) Save(ctx context.Context, in sales.NewSale) (sales.Sale, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return sales.Sale{}, f.err
	}
	s := sales.Sale{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		CreatedAt: time.Now().UTC(),
		Items:     in.Items,
		Total:     in.Total,
		Discount:  in.Discount,
	}
	f.saved = append(f.saved, s)
	return s, nil
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakeStore) last() sales.Sale {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[len(f.saved)-1]
}

type fakeListener struct {
	mu    sync.Mutex
	sales []sales.Sale
}

func (l *fakeListener) SaleCompleted(ctx context.Context, s sales.Sale) {
	l.mu.Lock()
	l.sales = append(l.sales, s)
	l.mu.Unlock()
}

type scheduled struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// manualTimer replaces time.AfterFunc so tests decide when payments finish.
type manualTimer struct {
	mu    sync.Mutex
	tasks []*scheduled
}

func (m *manualTimer) AfterFunc(d time.Duration, f func()) func() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc := &scheduled{delay: d, fn: f}
	m.tasks = append(m.tasks, sc)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sc.fired || sc.stopped {
			return false
		}
		sc.stopped = true
		return true
	}
}

// fire runs the most recent live task on the calling goroutine.
func (m *manualTimer) fire() bool {
	m.mu.Lock()
	var sc *scheduled
	for i := len(m.tasks) - 1; i >= 0; i-- {
		if !m.tasks[i].fired && !m.tasks[i].stopped {
			sc = m.tasks[i]
			break
		}
	}
	if sc == nil {
		m.mu.Unlock()
		return false
	}
	sc.fired = true
	m.mu.Unlock()

	sc.fn()
	return true
}

func (m *manualTimer) scheduledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *manualTimer) lastDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[len(m.tasks)-1].delay
}

func (m *manualTimer) stoppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.stopped {
			n++
		}
	}
	return n
}

func newTestSession(store *fakeStore, timer *manualTimer) *Session {
	n := 0
	return NewSession("session-1", "owner-1", Deps{
		Store:     store,
		AfterFunc: timer.AfterFunc,
		NewReference: func() string {
			n++
			return fmt.Sprintf("ref-%d", n)
		},
	})
}

func testProduct(id, price string) catalog.Product {
	return catalog.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		Category: catalog.Uncategorized,
	}
}

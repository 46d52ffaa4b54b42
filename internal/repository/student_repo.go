package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/cseasy-api/internal/models"
)

// StudentMutator applies a single change to a private copy of a student record.
// Returning an error discards the copy and leaves the stored record untouched.
type StudentMutator func(student *models.Student) error

// StudentRepository stores student records. Update is the only write path
// for existing records and follows copy-on-write: load, copy, mutate the
// copy, swap it in.
type StudentRepository interface {
	Create(ctx context.Context, student models.Student) error
	GetByID(ctx context.Context, id string) (models.Student, error)
	GetByZID(ctx context.Context, zid string) (models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
	First(ctx context.Context) (models.Student, error)
	Update(ctx context.Context, id string, mutate StudentMutator) (models.Student, error)
}

// studentSlot holds the published snapshot for one student. The snapshot
// behind current is never modified after it is stored.
type studentSlot struct {
	mu      sync.Mutex
	current atomic.Pointer[models.Student]
}

type memoryStudentRepository struct {
	mu    sync.RWMutex
	slots map[string]*studentSlot
	zids  map[string]string
	order []string
}

// NewMemoryStudentRepository constructs an empty process-local student store.
func NewMemoryStudentRepository() StudentRepository {
	return &memoryStudentRepository{
		slots: make(map[string]*studentSlot),
		zids:  make(map[string]string),
	}
}

func (r *memoryStudentRepository) Create(ctx context.Context, student models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[student.ID]; exists {
		return ErrDuplicate
	}
	if student.ZID != "" {
		if _, exists := r.zids[student.ZID]; exists {
			return ErrDuplicate
		}
		r.zids[student.ZID] = student.ID
	}

	snapshot := student.Clone()
	slot := &studentSlot{}
	slot.current.Store(&snapshot)
	r.slots[student.ID] = slot
	r.order = append(r.order, student.ID)
	return nil
}

func (r *memoryStudentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	slot, ok := r.slot(id)
	if !ok {
		return models.Student{}, ErrNotFound
	}
	return slot.current.Load().Clone(), nil
}

func (r *memoryStudentRepository) GetByZID(ctx context.Context, zid string) (models.Student, error) {
	r.mu.RLock()
	id, ok := r.zids[zid]
	r.mu.RUnlock()
	if !ok {
		return models.Student{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryStudentRepository) List(ctx context.Context) ([]models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Student, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.slots[id].current.Load().Clone())
	}
	return result, nil
}

func (r *memoryStudentRepository) First(ctx context.Context) (models.Student, error) {
	r.mu.RLock()
	if len(r.order) == 0 {
		r.mu.RUnlock()
		return models.Student{}, ErrNotFound
	}
	id := r.order[0]
	r.mu.RUnlock()
	return r.GetByID(ctx, id)
}

// Update serialises writers per student. Readers keep seeing the previous
// snapshot until the new one is stored in full.
func (r *memoryStudentRepository) Update(ctx context.Context, id string, mutate StudentMutator) (models.Student, error) {
	slot, ok := r.slot(id)
	if !ok {
		return models.Student{}, ErrNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	next := slot.current.Load().Clone()
	if err := mutate(&next); err != nil {
		return models.Student{}, err
	}
	slot.current.Store(&next)

	return next.Clone(), nil
}

func (r *memoryStudentRepository) slot(id string) (*studentSlot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[id]
	return slot, ok
}

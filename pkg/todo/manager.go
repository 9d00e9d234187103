package todo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Priority - приоритет задачи.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Filter - фильтр для List.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

var (
	// ErrTaskNotFound возвращается Complete для несуществующего id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyTitle возвращается Add для пустого заголовка.
	ErrEmptyTitle = errors.New("task title cannot be empty")
)

type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Manager - потокобезопасное хранилище задач.
//
// Живёт столько же, сколько процесс; id выдаются строго по возрастанию
// начиная с 1 и никогда не переиспользуются.
type Manager struct {
	mu     sync.RWMutex
	tasks  []Task
	nextID int
	now    func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		tasks:  make([]Task, 0),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParsePriority разбирает приоритет; пустая строка означает medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// ParseFilter разбирает фильтр; пустая строка означает all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterCompleted, FilterPending:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Add добавляет задачу со следующим id и возвращает её копию.
func (m *Manager) Add(title string, priority Priority) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	p, err := ParsePriority(string(priority))
	if err != nil {
		return Task{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task := Task{
		ID:        m.nextID,
		Title:     title,
		Priority:  p,
		CreatedAt: m.now(),
	}

	m.tasks = append(m.tasks, task)
	m.nextID++
	return task, nil
}

// List возвращает задачи в порядке добавления.
func (m *Manager) List(filter Filter) ([]Task, error) {
	f, err := ParseFilter(string(filter))
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		switch {
		case f == FilterCompleted && !task.Completed:
			continue
		case f == FilterPending && task.Completed:
			continue
		}
		result = append(result, task.clone())
	}
	return result, nil
}

// Complete отмечает задачу выполненной.
//
// Переход однонаправленный: повторный Complete возвращает задачу без
// изменения CompletedAt. Несуществующий id - ErrTaskNotFound, хранилище
// не меняется.
func (m *Manager) Complete(id int) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.tasks {
		if m.tasks[i].ID != id {
			continue
		}
		if !m.tasks[i].Completed {
			now := m.now()
			m.tasks[i].Completed = true
			m.tasks[i].CompletedAt = &now
		}
		return m.tasks[i].clone(), nil
	}
	return Task{}, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
}

// GetStats возвращает количество открытых и выполненных задач.
func (m *Manager) GetStats() (pending, done int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, task := range m.tasks {
		if task.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// clone отвязывает CompletedAt от внутреннего состояния.
func (t Task) clone() Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

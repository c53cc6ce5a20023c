package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	SaveFunc       func(ctx context.Context, book Book) (Book, error)
	FindAllFunc    func(ctx context.Context) ([]Book, error)
	FindByIDFunc   func(ctx context.Context, id int64) (Book, error)
	FindByNameFunc func(ctx context.Context, name string) ([]Book, error)
	DeleteByIDFunc func(ctx context.Context, id int64) error
}

// Save mocks the behavior of book creation or update by the repository.
func (m *MockBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	return m.SaveFunc(ctx, book)
}

// FindAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	return m.FindAllFunc(ctx)
}

// FindByID mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

// FindByName mocks the behavior of searching books by name.
func (m *MockBookStorage) FindByName(ctx context.Context, name string) ([]Book, error) {
	return m.FindByNameFunc(ctx, name)
}

// DeleteByID mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) DeleteByID(ctx context.Context, id int64) error {
	return m.DeleteByIDFunc(ctx, id)
}

// MockBookService implements a fake BookServiceProvider.
type MockBookService struct {
	CreateFunc     func(ctx context.Context, book Book) (Book, error)
	GetOneFunc     func(ctx context.Context, id int64) (Book, error)
	GetAllFunc     func(ctx context.Context) ([]Book, error)
	FindByNameFunc func(ctx context.Context, name string) ([]Book, error)
	UpdateFunc     func(ctx context.Context, id int64, book Book) (Book, error)
	DeleteFunc     func(ctx context.Context, id int64) error
}

func (m *MockBookService) Create(ctx context.Context, book Book) (Book, error) {
	return m.CreateFunc(ctx, book)
}

func (m *MockBookService) GetOne(ctx context.Context, id int64) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

func (m *MockBookService) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

func (m *MockBookService) FindByName(ctx context.Context, name string) ([]Book, error) {
	return m.FindByNameFunc(ctx, name)
}

func (m *MockBookService) Update(ctx context.Context, id int64, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

func (m *MockBookService) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// MockQueuer records pushed books and replays them on Pop.
type MockQueuer struct {
	mu      sync.Mutex
	PushErr error
	Pushed  []QueuedBook
}

// QueuedBook is a book pushed on a given queue.
type QueuedBook struct {
	Qid  string
	Book Book
}

func (mq *MockQueuer) Push(_ context.Context, qid string, book Book) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.PushErr != nil {
		return mq.PushErr
	}
	mq.Pushed = append(mq.Pushed, QueuedBook{qid, book})
	return nil
}

// Pop returns the oldest pushed book or waits for the context to be done.
func (mq *MockQueuer) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	for {
		mq.mu.Lock()
		if len(mq.Pushed) > 0 {
			item := mq.Pushed[0]
			mq.Pushed = mq.Pushed[1:]
			mq.mu.Unlock()
			return item.Qid, item.Book, nil
		}
		mq.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", Book{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Len returns the number of books waiting in the queue.
func (mq *MockQueuer) Len() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return len(mq.Pushed)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

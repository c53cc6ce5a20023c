package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Create(ctx context.Context, book Book) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	FindByName(ctx context.Context, name string) ([]Book, error)
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) error
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	storage BookStorage
	queue   Queuer
}

func NewBookService(logger *zap.Logger, config *Config, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		storage: storage,
		queue:   queue,
	}
}

// notify pushes the change to the mirror queue. A failure never
// fails the request since the main storage is already up to date.
func (bs *BookService) notify(ctx context.Context, qid string, book Book) {
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}

// Create stores the book under a new storage assigned id. Any id
// carried by the input is discarded.
func (bs *BookService) Create(ctx context.Context, book Book) (Book, error) {
	book.ID = 0
	created, err := bs.storage.Save(ctx, book)
	if err != nil {
		return Book{}, err
	}
	bs.notify(ctx, CreateQueue, created)
	return created, nil
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	return bs.storage.FindByID(ctx, id)
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	return bs.storage.FindAll(ctx)
}

func (bs *BookService) FindByName(ctx context.Context, name string) ([]Book, error) {
	return bs.storage.FindByName(ctx, name)
}

// Update overwrites name, type and content of the existing book.
// It returns ErrBookNotFound if there is no book with that id.
func (bs *BookService) Update(ctx context.Context, id int64, book Book) (Book, error) {
	existing, err := bs.storage.FindByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	existing.Name = book.Name
	existing.Type = book.Type
	existing.Content = book.Content

	updated, err := bs.storage.Save(ctx, existing)
	if err != nil {
		return Book{}, err
	}
	bs.notify(ctx, UpdateQueue, updated)
	return updated, nil
}

// Delete removes the book. Deleting an unknown id succeeds.
func (bs *BookService) Delete(ctx context.Context, id int64) error {
	if err := bs.storage.DeleteByID(ctx, id); err != nil {
		return err
	}
	bs.notify(ctx, DeleteQueue, Book{ID: id})
	return nil
}

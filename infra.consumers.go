package main

import (
	"context"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// mirrorConsumer replays the book changes popped from the queue into
// the mirror storage.
type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   BookStorage
}

func NewMirrorConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &mirrorConsumer{logger, q, repo}
}

func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := mc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			mc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue:
			if _, err = mc.repo.Save(ctx, book); err != nil {
				mc.logger.Error("consumer: failed to save", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
			}
		case DeleteQueue:
			if err = mc.repo.DeleteByID(ctx, book.ID); err != nil {
				mc.logger.Error("consumer: failed to delete", zap.Int64("book.id", book.ID), zap.Error(err))
			}
		default:
			mc.logger.Warn("consumer: received book on unknow queue id", zap.String("qid", qid), zap.Any("book", book))
		}
	}
}

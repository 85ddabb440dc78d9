package worker

import (
	"context"
	"log"
	"time"

	"github.com/EgorLis/my-books/internal/domain"
)

// ViewCounter — фоновый потребитель очереди просмотров. Забирает батч,
// схлопывает дельты по book_id и применяет одним UPDATE на книгу.
// Кеш не трогается вообще: читатели видят view_count с отставанием
// на глубину очереди, это принятая eventual consistency.
type ViewCounter struct {
	log   *log.Logger
	queue domain.ViewQueue
	repo  domain.BooksRepo

	BatchSize int           // по умолчанию 10
	Interval  time.Duration // пауза между батчами, по умолчанию 1s
}

func NewViewCounter(logger *log.Logger, queue domain.ViewQueue, repo domain.BooksRepo) *ViewCounter {
	return &ViewCounter{
		log:       logger,
		queue:     queue,
		repo:      repo,
		BatchSize: 10,
		Interval:  time.Second,
	}
}

// Run крутится до отмены контекста. Ошибки батча логируются, цикл живёт.
func (w *ViewCounter) Run(ctx context.Context) {
	w.log.Println("waiting for messages")
	for {
		select {
		case <-ctx.Done():
			w.log.Println("stopped")
			return
		default:
		}

		if err := w.ProcessBatch(ctx); err != nil {
			w.log.Printf("batch failed: %v", err)
		}

		select {
		case <-ctx.Done():
			w.log.Println("stopped")
			return
		case <-time.After(w.Interval):
		}
	}
}

// ProcessBatch — один проход: получить, агрегировать, применить.
func (w *ViewCounter) ProcessBatch(ctx context.Context) error {
	msgs, err := w.queue.ReceiveViews(ctx, w.BatchSize)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	counts := make(map[domain.BookID]int64, len(msgs))
	for _, m := range msgs {
		counts[m.BookID]++
	}

	for id, delta := range counts {
		if err := w.repo.IncrementViewCount(ctx, id, delta); err != nil {
			w.log.Printf("increment book=%d by %d failed: %v", id, delta, err)
			continue
		}
		w.log.Printf("book=%d views +%d", id, delta)
	}
	return nil
}

package domain

import "context"

// Сообщение очереди просмотров: один просмотр одной книги.
type ViewMessage struct {
	BookID BookID `json:"book_id"`
}

// Очередь просмотров. Запись идёт мимо кеша и мимо основного write-path:
// читатель деталки кладёт сообщение, воркер батчами копит дельты и
// обновляет view_count в базе. Читатели могут видеть отстающий счётчик —
// это принятая eventual consistency, не баг.
type ViewQueue interface {
	SendView(ctx context.Context, id BookID) error
	// ReceiveViews забирает до max сообщений (забранное удаляется из очереди).
	ReceiveViews(ctx context.Context, max int) ([]ViewMessage, error)
	Ping(ctx context.Context) error
}

package redisq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgorLis/my-books/internal/domain"
)

// Очередь просмотров поверх Redis-списка: API делает LPUSH на каждом
// просмотре деталки, воркер забирает батчи через RPOP с count.
// Забранное сообщение сразу исчезает из очереди — отдельного ack нет,
// потеря батча при падении воркера стоит нескольких просмотров и
// принимается осознанно.
type Queue struct {
	rdb    *redis.Client
	key    string
	logger *log.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
	Key      string // имя списка, по умолчанию view-counts
}

const defaultKey = "view-counts"

func New(cfg Config, logger *log.Logger) *Queue {
	if cfg.Key == "" {
		cfg.Key = defaultKey
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &Queue{rdb: rdb, key: cfg.Key, logger: logger}
}

func (q *Queue) SendView(ctx context.Context, id domain.BookID) error {
	msg, err := json.Marshal(domain.ViewMessage{BookID: id})
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.key, msg).Err(); err != nil {
		q.logger.Printf("LPUSH %q failed: %v", q.key, err)
		return err
	}
	q.logger.Printf("LPUSH %q book=%d", q.key, id)
	return nil
}

func (q *Queue) ReceiveViews(ctx context.Context, max int) ([]domain.ViewMessage, error) {
	if max <= 0 {
		max = 10
	}
	vals, err := q.rdb.RPopCount(ctx, q.key, max).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		q.logger.Printf("RPOP %q failed: %v", q.key, err)
		return nil, err
	}

	out := make([]domain.ViewMessage, 0, len(vals))
	for _, v := range vals {
		var m domain.ViewMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			// битое сообщение выбрасываем, очередь не стопорим
			q.logger.Printf("broken message dropped: %v", err)
			continue
		}
		out = append(out, m)
	}
	q.logger.Printf("RPOP %q: received=%d", q.key, len(out))
	return out, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) Close() {
	if err := q.rdb.Close(); err != nil {
		q.logger.Printf("error while closing: %v", err)
		return
	}
	q.logger.Println("closed")
}

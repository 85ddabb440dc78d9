package books

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/EgorLis/my-books/internal/domain"
)

const DefaultSuggestLimit = 10

// Suggest — автодополнение по названиям. Пустой запрос — сразу пустой
// ответ без похода в кеш. Дальше: кеш → Title Index → кеш с TTL по
// форме запроса (короткие запросы живут дольше, пустые результаты —
// меньше всех, чтобы свежесозданная книга быстро всплыла).
//
// Автодополнение некритично: любой сбой деградирует до пустого списка,
// ошибку наружу не отдаём.
func (s *Service) Suggest(ctx context.Context, query string, limit int) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	key := domain.CacheKeySuggest(q, limit)
	if b, err := s.cache.Get(ctx, key); err != nil {
		s.log.Printf("suggest: cache get %q: %v", key, err)
	} else if b != nil {
		var cached []string
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached
		}
	}

	if err := s.WarmUp(ctx); err != nil {
		s.log.Printf("suggest: title index warmup: %v", err)
		return []string{}
	}

	out := s.titles.Search(q, limit)

	if buf, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, buf, domain.SuggestTTL(q, len(out))); err != nil {
			s.log.Printf("suggest: cache set %q: %v", key, err)
		}
	}
	return out
}

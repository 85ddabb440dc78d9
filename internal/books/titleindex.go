package books

import (
	"strings"
	"sync"
)

// TitleIndex — денормализованный список уникальных названий книг,
// живёт в памяти процесса и отвечает на автодополнение без похода в базу.
// Порядок: свежесозданные — в начале; Replace сохраняет позицию старого
// названия.
//
// Индекс локален для инстанса: при нескольких репликах каждая видит только
// свои записи, расхождение ограничено TTL снапшота в кеше (известное
// ограничение, зафиксировано в DESIGN.md).
//
// Мьютекс нужен: HTTP-хендлеры ходят сюда конкурентно.
type TitleIndex struct {
	mu     sync.RWMutex
	titles []string
	seen   map[string]struct{} // членство по точному совпадению
	ready  bool
}

func NewTitleIndex() *TitleIndex {
	return &TitleIndex{seen: make(map[string]struct{})}
}

// Ready сообщает, был ли индекс хоть раз засеян (Sync/Seed).
func (ix *TitleIndex) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Seed полностью замещает содержимое индекса (полный скан базы или
// снапшот из кеша). Порядок входного среза сохраняется.
func (ix *TitleIndex) Seed(titles []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.titles = ix.titles[:0]
	ix.seen = make(map[string]struct{}, len(titles))
	for _, t := range titles {
		if _, dup := ix.seen[t]; dup {
			continue
		}
		ix.titles = append(ix.titles, t)
		ix.seen[t] = struct{}{}
	}
	ix.ready = true
}

// Add добавляет название в начало; если уже есть — no-op.
func (ix *TitleIndex) Add(title string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.seen[title]; ok {
		return
	}
	ix.titles = append([]string{title}, ix.titles...)
	ix.seen[title] = struct{}{}
}

// Remove убирает название; нет — no-op.
func (ix *TitleIndex) Remove(title string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.seen[title]; !ok {
		return
	}
	delete(ix.seen, title)
	for i, t := range ix.titles {
		if t == title {
			ix.titles = append(ix.titles[:i], ix.titles[i+1:]...)
			break
		}
	}
}

// Replace меняет oldTitle на newTitle, сохраняя позицию.
// Старого нет — деградирует до Add; новое уже есть — просто убираем старое,
// чтобы не плодить дубликаты.
func (ix *TitleIndex) Replace(oldTitle, newTitle string) {
	if oldTitle == newTitle {
		return
	}
	ix.mu.Lock()
	if _, ok := ix.seen[oldTitle]; !ok {
		ix.mu.Unlock()
		ix.Add(newTitle)
		return
	}
	if _, ok := ix.seen[newTitle]; ok {
		ix.mu.Unlock()
		ix.Remove(oldTitle)
		return
	}
	for i, t := range ix.titles {
		if t == oldTitle {
			ix.titles[i] = newTitle
			break
		}
	}
	delete(ix.seen, oldTitle)
	ix.seen[newTitle] = struct{}{}
	ix.mu.Unlock()
}

// Snapshot — копия содержимого (для персиста в кеш и тестов).
func (ix *TitleIndex) Snapshot() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.titles))
	copy(out, ix.titles)
	return out
}

func (ix *TitleIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.titles)
}

// Search — регистронезависимый поиск по подстроке с ранжированием:
// совпадение по префиксу важнее совпадения внутри строки, при равном
// ранге сохраняется порядок индекса.
func (ix *TitleIndex) Search(query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []string{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	prefix := make([]string, 0, limit)
	contains := make([]string, 0, limit)
	for _, t := range ix.titles {
		lt := strings.ToLower(t)
		switch {
		case strings.HasPrefix(lt, q):
			prefix = append(prefix, t)
		case strings.Contains(lt, q):
			contains = append(contains, t)
		}
		if len(prefix) >= limit {
			break
		}
	}

	out := prefix
	for _, t := range contains {
		if len(out) >= limit {
			break
		}
		out = append(out, t)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

package books

import (
	"context"
	"encoding/json"

	"github.com/EgorLis/my-books/internal/domain"
)

// Политика инвалидации на запись — одна таблица на все операции,
// чтобы стратегии не расползались:
//
//	create  — «витрину» (books:all...p1) правим по месту, prepend нового;
//	          деталку новой книги сразу кладём в кеш
//	update  — деталку перезаписываем; в «витрине» find-and-replace;
//	          при смене названия сносим ключи, завязанные на старый title;
//	          вытесненную обложку убираем из storage
//	delete  — деталку сносим; из «витрины» выфильтровываем id;
//	          обложку убираем из storage
//	like    — персональную деталку сносим (is_liked протух);
//	          в общей деталке и «витрине» правим like_count на ±1
//
// Остальные закешированные страницы сознательно не трогаем — их
// протухание ограничено TTL.

// Create создаёт книгу, обновляет Title Index и патчит кеш.
func (s *Service) Create(ctx context.Context, in domain.BookInput) (domain.Book, error) {
	b, err := s.repo.CreateBook(ctx, in)
	if err != nil {
		return domain.Book{}, err
	}
	s.log.Printf("create: book id=%d title=%q", b.ID, b.Title)

	s.titles.Add(b.Title)
	s.persistTitles(ctx)

	// деталка новой книги — сразу в кеш
	if buf, err := json.Marshal(domain.BookDetail{Book: b}); err == nil {
		if err := s.cache.Set(ctx, domain.CacheKeyBook(b.ID), buf, domain.TTLBookAnon); err != nil {
			s.log.Printf("create: cache set detail: %v", err)
		}
	}

	// prepend в «витрину» вместо удаления — иначе горячий список
	// ловит stampede на каждом создании
	s.patchDefaultList(ctx, func(env *domain.ListEnvelope) {
		env.Data = append([]domain.Book{b}, env.Data...)
		if len(env.Data) > env.Pagination.Limit {
			env.Data = env.Data[:env.Pagination.Limit]
		}
		total := env.Pagination.Total + 1
		env.Pagination = domain.NewPagination(env.Pagination.Page, env.Pagination.Limit, total, len(env.Data))
	})
	return b, nil
}

// Update обновляет книгу; oldTitle берём из базы до апдейта.
func (s *Service) Update(ctx context.Context, id domain.BookID, in domain.BookInput) (domain.Book, error) {
	old, err := s.repo.BookByID(ctx, id, nil)
	if err != nil {
		return domain.Book{}, err
	}

	// обложка: новая вытесняет старую, без новой — остаётся прежняя
	replacedCover := false
	if in.ImageURL == nil {
		in.ImageURL = old.ImageURL
	} else if old.ImageURL != nil && *old.ImageURL != *in.ImageURL {
		replacedCover = true
	}

	b, err := s.repo.UpdateBook(ctx, id, in)
	if err != nil {
		return domain.Book{}, err
	}
	s.log.Printf("update: book id=%d title=%q", b.ID, b.Title)

	if replacedCover {
		s.dropCover(ctx, old.ImageURL)
	}

	// деталку просто перезаписываем
	if buf, err := json.Marshal(domain.BookDetail{Book: b}); err == nil {
		if err := s.cache.Set(ctx, domain.CacheKeyBook(b.ID), buf, domain.TTLBookAnon); err != nil {
			s.log.Printf("update: cache set detail: %v", err)
		}
	}

	s.patchDefaultList(ctx, func(env *domain.ListEnvelope) {
		for i := range env.Data {
			if env.Data[i].ID == b.ID {
				env.Data[i] = b
				break
			}
		}
	})

	if old.Title != b.Title {
		s.titles.Replace(old.Title, b.Title)
		s.persistTitles(ctx)
		// списки, отфильтрованные по старому названию, больше не могут
		// содержать эту строку — сносим по префиксу
		if err := s.cache.DelByPrefix(ctx, domain.CacheKeyListByTitlePrefix(old.Title)); err != nil {
			s.log.Printf("update: del by old title prefix: %v", err)
		}
	}
	return b, nil
}

// Delete удаляет книгу и её следы в кеше и Title Index.
func (s *Service) Delete(ctx context.Context, id domain.BookID) error {
	old, err := s.repo.BookByID(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.log.Printf("delete: book id=%d title=%q", id, old.Title)

	s.dropCover(ctx, old.ImageURL)

	s.titles.Remove(old.Title)
	s.persistTitles(ctx)

	if err := s.cache.Del(ctx, domain.CacheKeyBook(id)); err != nil {
		s.log.Printf("delete: cache del detail: %v", err)
	}
	// персональные записи: book:{id}:user:{uid}
	if err := s.cache.DelByPrefix(ctx, domain.CacheKeyBookUserPrefix(id)); err != nil {
		s.log.Printf("delete: cache del user details: %v", err)
	}

	s.patchDefaultList(ctx, func(env *domain.ListEnvelope) {
		out := env.Data[:0]
		for _, bk := range env.Data {
			if bk.ID != id {
				out = append(out, bk)
			}
		}
		env.Data = out
		total := env.Pagination.Total - 1
		if total < 0 {
			total = 0
		}
		env.Pagination = domain.NewPagination(env.Pagination.Page, env.Pagination.Limit, total, len(env.Data))
	})
	return nil
}

// ToggleLike переключает лайк. База пересчитывает like_count внутри
// транзакции; кеш лишь зеркалит дельту ±1 и ни в коем случае не
// пересчитывает сам — иначе зеркала разъезжаются.
func (s *Service) ToggleLike(ctx context.Context, userID domain.UserID, bookID domain.BookID) (bool, int64, error) {
	liked, likeCount, err := s.repo.ToggleLike(ctx, userID, bookID)
	if err != nil {
		return false, 0, err
	}
	s.log.Printf("like: book=%d user=%s liked=%v count=%d", bookID, userID, liked, likeCount)

	// персональная деталка протухла — is_liked сменился
	if err := s.cache.Del(ctx, domain.CacheKeyBookUser(bookID, userID)); err != nil {
		s.log.Printf("like: cache del user detail: %v", err)
	}

	var delta int64 = 1
	if !liked {
		delta = -1
	}

	// общая деталка: правим like_count по месту
	if b, err := s.cache.Get(ctx, domain.CacheKeyBook(bookID)); err == nil && b != nil {
		var d domain.BookDetail
		if err := json.Unmarshal(b, &d); err == nil {
			d.LikeCount += delta
			if d.LikeCount < 0 {
				d.LikeCount = 0
			}
			if buf, err := json.Marshal(d); err == nil {
				if err := s.cache.Set(ctx, domain.CacheKeyBook(bookID), buf, domain.TTLBookAnon); err != nil {
					s.log.Printf("like: cache set detail: %v", err)
				}
			}
		}
	}

	s.patchDefaultList(ctx, func(env *domain.ListEnvelope) {
		for i := range env.Data {
			if env.Data[i].ID == bookID {
				env.Data[i].LikeCount += delta
				if env.Data[i].LikeCount < 0 {
					env.Data[i].LikeCount = 0
				}
				break
			}
		}
	})
	return liked, likeCount, nil
}

// dropCover убирает вытесненный объект из хранилища. Ключи там
// контент-адресные, одну картинку могут делить несколько книг, поэтому
// удаление best-effort: ошибка (или чужой живой референс) — лог и дальше,
// как и с кешем.
func (s *Service) dropCover(ctx context.Context, url *string) {
	if url == nil || *url == "" {
		return
	}
	if err := s.covers.Delete(ctx, *url); err != nil {
		s.log.Printf("cover delete %q: %v", *url, err)
	}
}

// patchDefaultList правит «витринную» запись списка по месту, если она
// есть. TTL записи при патче продлевается до полного — это осознанно:
// запись остаётся консистентной, продлевать её не страшно.
func (s *Service) patchDefaultList(ctx context.Context, patch func(*domain.ListEnvelope)) {
	key := domain.CacheKeyListDefault()
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Printf("patch list: cache get: %v", err)
		return
	}
	if b == nil {
		return
	}
	var env domain.ListEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		_ = s.cache.Del(ctx, key)
		return
	}
	patch(&env)
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, buf, domain.TTLListDefault); err != nil {
		s.log.Printf("patch list: cache set: %v", err)
	}
}

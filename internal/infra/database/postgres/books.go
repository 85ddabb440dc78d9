package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/google/uuid"

	"github.com/EgorLis/my-books/internal/domain"
)

const bookColumns = "id, title, author, year, description, image_url, view_count, like_count, created_at, updated_at"

// listWhere применяет фильтры списка. ILIKE по lower() — под GIN-индекс
// на lower(title)/lower(author).
func listWhere(sb sq.SelectBuilder, f domain.ListFilter) sq.SelectBuilder {
	if f.Title != "" {
		sb = sb.Where(sq.Expr("lower(b.title) LIKE lower(?)", "%"+f.Title+"%"))
	}
	if f.Author != "" {
		sb = sb.Where(sq.Expr("lower(b.author) LIKE lower(?)", "%"+f.Author+"%"))
	}
	return sb
}

func orderBy(sort domain.SortMode) []string {
	switch sort {
	case domain.SortOldest:
		return []string{"b.created_at ASC"}
	case domain.SortPopular:
		return []string{"b.view_count DESC", "b.like_count DESC", "b.created_at DESC"}
	case domain.SortLikeCount:
		return []string{"b.like_count DESC", "b.created_at DESC"}
	case domain.SortViewCount:
		return []string{"b.view_count DESC", "b.created_at DESC"}
	default: // newest
		return []string{"b.created_at DESC"}
	}
}

func (r *PGRepo) CountBooks(ctx context.Context, f domain.ListFilter) (int64, error) {
	sb := r.qb().Select("COUNT(*)").From(r.table("books") + " b")
	sb = listWhere(sb, f)

	sqlStr, args, _ := sb.ToSql()
	r.logSQL("CountBooks", sqlStr, args)

	start := time.Now()
	var total int64
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		r.logger.Printf("CountBooks scan error after %s: %v", time.Since(start), err)
		return 0, err
	}
	r.logger.Printf("CountBooks ok in %s total=%d", time.Since(start), total)
	return total, nil
}

func (r *PGRepo) ListBooks(ctx context.Context, f domain.ListFilter) ([]domain.Book, error) {
	offset := uint64(f.Page-1) * uint64(f.Limit)
	sb := r.qb().Select(
		"b.id", "b.title", "b.author", "b.year", "b.description", "b.image_url",
		"b.view_count", "b.like_count", "b.created_at", "b.updated_at",
	).From(r.table("books") + " b")
	sb = listWhere(sb, f).
		OrderBy(orderBy(f.Sort)...).
		Limit(uint64(f.Limit)).
		Offset(offset)

	sqlStr, args, _ := sb.ToSql()
	r.logSQL("ListBooks", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("ListBooks query error after %s: %v", time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	var res []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Author, &b.Year, &b.Description, &b.ImageURL,
			&b.ViewCount, &b.LikeCount, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			r.logger.Printf("ListBooks scan error: %v", err)
			return nil, err
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("ListBooks rows error: %v", err)
		return nil, err
	}
	r.logger.Printf("ListBooks ok in %s count=%d", time.Since(start), len(res))
	return res, nil
}

// BookByID: like_count пересчитываем живым подзапросом, is_liked — EXISTS
// по конкретному пользователю (для анонима всегда false).
func (r *PGRepo) BookByID(ctx context.Context, id domain.BookID, forUser *domain.UserID) (domain.BookDetail, error) {
	likes := r.table("book_likes")
	uid := uuid.Nil
	if forUser != nil {
		uid = *forUser
	}

	sb := r.qb().Select(
		"b.id", "b.title", "b.author", "b.year", "b.description", "b.image_url",
		"b.view_count",
	).
		Column(sq.Expr("(SELECT COUNT(*) FROM " + likes + " WHERE book_id = b.id) AS like_count")).
		Column(sq.Expr("EXISTS (SELECT 1 FROM "+likes+" WHERE book_id = b.id AND user_id = ?) AS is_liked", uid)).
		Columns("b.created_at", "b.updated_at").
		From(r.table("books") + " b").
		Where(sq.Eq{"b.id": id})

	sqlStr, args, _ := sb.ToSql()
	r.logSQL("BookByID", sqlStr, args)

	start := time.Now()
	var d domain.BookDetail
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&d.ID, &d.Title, &d.Author, &d.Year, &d.Description, &d.ImageURL,
		&d.ViewCount, &d.LikeCount, &d.IsLiked, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Printf("BookByID not found in %s id=%d", time.Since(start), id)
		return domain.BookDetail{}, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("BookByID scan error after %s: %v", time.Since(start), err)
		return domain.BookDetail{}, err
	}
	r.logger.Printf("BookByID ok in %s id=%d", time.Since(start), id)
	return d, nil
}

func (r *PGRepo) CreateBook(ctx context.Context, in domain.BookInput) (domain.Book, error) {
	q := r.qb().Insert(r.table("books")).
		Columns("title", "author", "year", "description", "image_url", "view_count", "like_count").
		Values(in.Title, in.Author, in.Year, in.Description, in.ImageURL, 0, 0).
		Suffix("RETURNING " + bookColumns)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateBook", sqlStr, args)

	start := time.Now()
	var b domain.Book
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&b.ID, &b.Title, &b.Author, &b.Year, &b.Description, &b.ImageURL,
		&b.ViewCount, &b.LikeCount, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		r.logger.Printf("CreateBook scan error after %s: %v", time.Since(start), err)
		return domain.Book{}, err
	}
	r.logger.Printf("CreateBook ok in %s id=%d title=%q", time.Since(start), b.ID, b.Title)
	return b, nil
}

func (r *PGRepo) UpdateBook(ctx context.Context, id domain.BookID, in domain.BookInput) (domain.Book, error) {
	q := r.qb().Update(r.table("books")).
		SetMap(map[string]any{
			"title":       in.Title,
			"author":      in.Author,
			"year":        in.Year,
			"description": in.Description,
			"image_url":   in.ImageURL,
			"updated_at":  sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + bookColumns)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("UpdateBook", sqlStr, args)

	start := time.Now()
	var b domain.Book
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&b.ID, &b.Title, &b.Author, &b.Year, &b.Description, &b.ImageURL,
		&b.ViewCount, &b.LikeCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Book{}, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("UpdateBook scan error after %s: %v", time.Since(start), err)
		return domain.Book{}, err
	}
	r.logger.Printf("UpdateBook ok in %s id=%d", time.Since(start), b.ID)
	return b, nil
}

func (r *PGRepo) DeleteBook(ctx context.Context, id domain.BookID) error {
	q := r.qb().Delete(r.table("books")).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteBook", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("DeleteBook exec error after %s: %v", time.Since(start), err)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Printf("DeleteBook no rows affected in %s id=%d", time.Since(start), id)
		return domain.ErrNotFound
	}
	r.logger.Printf("DeleteBook ok in %s id=%d", time.Since(start), id)
	return nil
}

// ToggleLike — единственное место, где нужна настоящая атомарность:
// проверка, вставка/удаление лайка и пересчёт like_count идут в одной
// транзакции, любой сбой — rollback. Счётчик именно пересчитывается
// (COUNT), а не инкрементится — так он не дрейфует.
func (r *PGRepo) ToggleLike(ctx context.Context, userID domain.UserID, bookID domain.BookID) (bool, int64, error) {
	likes := r.table("book_likes")
	books := r.table("books")

	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND book_id = $2)", likes),
		userID, bookID,
	).Scan(&exists); err != nil {
		r.logger.Printf("ToggleLike check error: %v", err)
		return false, 0, err
	}

	if exists {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND book_id = $2", likes),
			userID, bookID,
		); err != nil {
			r.logger.Printf("ToggleLike delete error: %v", err)
			return false, 0, err
		}
	} else {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (user_id, book_id, created_at) VALUES ($1, $2, now())", likes),
			userID, bookID,
		); err != nil {
			r.logger.Printf("ToggleLike insert error: %v", err)
			return false, 0, err
		}
	}

	var likeCount int64
	err = tx.QueryRow(ctx,
		fmt.Sprintf("UPDATE %s SET like_count = (SELECT COUNT(*) FROM %s WHERE book_id = $1) WHERE id = $1 RETURNING like_count", books, likes),
		bookID,
	).Scan(&likeCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("ToggleLike recount error: %v", err)
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}
	liked := !exists
	r.logger.Printf("ToggleLike ok in %s book=%d user=%s liked=%v count=%d",
		time.Since(start), bookID, userID, liked, likeCount)
	return liked, likeCount, nil
}

// DistinctTitles — сид Title Index: по одному вхождению на название,
// свежесозданные — первыми.
func (r *PGRepo) DistinctTitles(ctx context.Context) ([]string, error) {
	books := r.table("books")
	sqlStr := fmt.Sprintf(`
		SELECT t.title FROM (
			SELECT DISTINCT ON (title) title, created_at
			FROM %s
			ORDER BY title, created_at DESC
		) t
		ORDER BY t.created_at DESC`, books)
	r.logSQL("DistinctTitles", sqlStr, nil)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr)
	if err != nil {
		r.logger.Printf("DistinctTitles query error after %s: %v", time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			r.logger.Printf("DistinctTitles scan error: %v", err)
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("DistinctTitles ok in %s count=%d", time.Since(start), len(out))
	return out, nil
}

// IncrementViewCount — путь воркера очереди, мимо кеша.
func (r *PGRepo) IncrementViewCount(ctx context.Context, id domain.BookID, delta int64) error {
	q := r.qb().Update(r.table("books")).
		Set("view_count", sq.Expr("view_count + ?", delta)).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("IncrementViewCount", sqlStr, args)

	start := time.Now()
	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		r.logger.Printf("IncrementViewCount exec error after %s: %v", time.Since(start), err)
		return err
	}
	r.logger.Printf("IncrementViewCount ok in %s id=%d delta=%d", time.Since(start), id, delta)
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/EgorLis/my-books/internal/domain"
)

func (r *PGRepo) AddView(ctx context.Context, userID domain.UserID, bookID domain.BookID) error {
	q := r.qb().Insert(r.table("view_history")).
		Columns("user_id", "book_id", "viewed_at").
		Values(userID, bookID, sq.Expr("now()"))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("AddView", sqlStr, args)

	start := time.Now()
	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		r.logger.Printf("AddView exec error after %s: %v", time.Since(start), err)
		return err
	}
	r.logger.Printf("AddView ok in %s user=%s book=%d", time.Since(start), userID, bookID)
	return nil
}

func (r *PGRepo) ViewHistory(ctx context.Context, userID domain.UserID, limit int) ([]domain.ViewHistoryEntry, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	q := r.qb().Select("vh.book_id", "b.title", "b.author", "b.image_url", "vh.viewed_at").
		From(r.table("view_history") + " vh").
		Join(fmt.Sprintf("%s b ON vh.book_id = b.id", r.table("books"))).
		Where(sq.Eq{"vh.user_id": userID}).
		OrderBy("vh.viewed_at DESC").
		Limit(uint64(limit))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ViewHistory", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("ViewHistory query error after %s: %v", time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.ViewHistoryEntry
	for rows.Next() {
		var e domain.ViewHistoryEntry
		if err := rows.Scan(&e.BookID, &e.Title, &e.Author, &e.ImageURL, &e.ViewedAt); err != nil {
			r.logger.Printf("ViewHistory scan error: %v", err)
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("ViewHistory ok in %s user=%s count=%d", time.Since(start), userID, len(out))
	return out, nil
}

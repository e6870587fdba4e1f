package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calmhq/calmcontent/internal/domain/content"
	"github.com/calmhq/calmcontent/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContentsRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewContentsRepo(pool *pgxpool.Pool, metrics *observability.Prom) *ContentsRepo {
	return &ContentsRepo{pool: pool, metrics: metrics}
}

func (r *ContentsRepo) Create(ctx context.Context, userID int64, title, body string) (content.Content, error) {
	var c content.Content

	err := r.metrics.ObserveDB("contents.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO contents (user_id, title, body)
			 VALUES ($1, $2, $3)
			 RETURNING id, user_id, title, body, created_at`,
			userID, title, body,
		).Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &c.CreatedAt)
	})

	if err != nil {
		return content.Content{}, err
	}

	return c, nil
}

// ListByUser returns the caller's rows in insertion order.
func (r *ContentsRepo) ListByUser(ctx context.Context, userID int64) ([]content.Content, error) {
	var out []content.Content

	err := r.metrics.ObserveDB("contents.list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, title, body, created_at
			 FROM contents
			 WHERE user_id = $1
			 ORDER BY id ASC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]content.Content, 0)

		for rows.Next() {
			var c content.Content

			if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &c.CreatedAt); err != nil {
				return err
			}

			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ContentsRepo) GetByID(ctx context.Context, id int64) (content.Content, error) {
	var c content.Content

	err := r.metrics.ObserveDB("contents.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, title, body, created_at
			 FROM contents
			 WHERE id = $1`,
			id,
		).Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Content{}, content.ErrNotFound
		}

		return content.Content{}, err
	}

	return c, nil
}

// UpdateContentParams carries the optional fields of a content update;
// nil fields are left untouched. Not reachable from the user-facing routes.
type UpdateContentParams struct {
	Title *string
	Body  *string
}

func (r *ContentsRepo) Update(ctx context.Context, id int64, params UpdateContentParams) (content.Content, error) {
	var sets []string
	var args []interface{}

	argsPosition := 1

	if params.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", argsPosition))
		args = append(args, *params.Title)
		argsPosition++
	}

	if params.Body != nil {
		sets = append(sets, fmt.Sprintf("body = $%d", argsPosition))
		args = append(args, *params.Body)
		argsPosition++
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE contents SET %s WHERE id = $%d
		 RETURNING id, user_id, title, body, created_at`,
		strings.Join(sets, ", "), argsPosition,
	)
	args = append(args, id)

	var c content.Content

	err := r.metrics.ObserveDB("contents.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).
			Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Content{}, content.ErrNotFound
		}

		return content.Content{}, err
	}

	return c, nil
}

func (r *ContentsRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.metrics.ObserveDB("contents.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
		return execErr
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return content.ErrNotFound
	}

	return nil
}

// ListAll is the admin view: every row joined with its owner's email.
// Deleted owners show up with an empty email (FK is ON DELETE SET NULL).
func (r *ContentsRepo) ListAll(ctx context.Context) ([]content.WithOwner, error) {
	var out []content.WithOwner

	err := r.metrics.ObserveDB("contents.list_all", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT c.id, COALESCE(c.user_id, 0), c.title, c.body, c.created_at, COALESCE(u.email, '')
			 FROM contents c
			 LEFT JOIN users u ON c.user_id = u.id
			 ORDER BY c.id ASC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]content.WithOwner, 0)

		for rows.Next() {
			var c content.WithOwner

			if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Body, &c.CreatedAt, &c.OwnerEmail); err != nil {
				return err
			}

			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

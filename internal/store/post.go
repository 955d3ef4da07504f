package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/blogsphere/apiserver/types"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// likeEscaper quotes LIKE metacharacters with Postgres' default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var postColumns = []string{
	"p.id",
	"p.title",
	"p.content",
	"p.category",
	"p.author_id",
	"u.name",
	"p.photo_url",
	"p.photo_key",
	"p.created_at",
	"p.updated_at",
}

// PostFilter narrows a post listing. Zero values mean "no filter".
type PostFilter struct {
	Category string
	AuthorID int
	// Search matches titles case-insensitively.
	Search string
	Offset int
	Limit  int
}

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) List(ctx context.Context, filter PostFilter) ([]types.Post, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	countQuery, countArgs, err := applyPostFilter(psql.Select("COUNT(1)").From("posts p"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery, listArgs, err := applyPostFilter(selectPosts(), filter).
		OrderBy("p.created_at DESC", "p.id DESC").
		Offset(uint64(filter.Offset)).
		Limit(uint64(filter.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, filter.Limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	query, args, err := selectPosts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return types.Post{}, err
	}
	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

// FindByTitleAndContent returns a post with exactly the given title and content,
// ignoring the post with id excludeID when it is positive.
func (r *PostRepository) FindByTitleAndContent(ctx context.Context, title, content string, excludeID int) (types.Post, error) {
	builder := selectPosts().Where(sq.Eq{"p.title": title, "p.content": content})
	if excludeID > 0 {
		builder = builder.Where(sq.NotEq{"p.id": excludeID})
	}
	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return types.Post{}, err
	}
	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	const query = `
		INSERT INTO posts (title, content, category, author_id, photo_url, photo_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.Content,
		post.Category,
		post.AuthorID,
		post.PhotoURL,
		post.PhotoKey,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Post{}, ErrConflict
		}
		return types.Post{}, err
	}

	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now()

	const query = `
		UPDATE posts
		SET title = $1,
			content = $2,
			category = $3,
			photo_url = $4,
			photo_key = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		post.Title,
		post.Content,
		post.Category,
		post.PhotoURL,
		post.PhotoKey,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Post{}, ErrConflict
		}
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}

	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func selectPosts() sq.SelectBuilder {
	return psql.Select(postColumns...).
		From("posts p").
		Join("users u ON u.id = p.author_id")
}

func applyPostFilter(builder sq.SelectBuilder, filter PostFilter) sq.SelectBuilder {
	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"p.category": filter.Category})
	}
	if filter.AuthorID > 0 {
		builder = builder.Where(sq.Eq{"p.author_id": filter.AuthorID})
	}
	if filter.Search != "" {
		builder = builder.Where(sq.ILike{"p.title": "%" + likeEscaper.Replace(filter.Search) + "%"})
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Category,
		&post.AuthorID,
		&post.AuthorName,
		&post.PhotoURL,
		&post.PhotoKey,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return post, err
}

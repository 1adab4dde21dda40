package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ Repository = (*postgresRepository)(nil)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqCheckViolation      = "23514"
)

const selectPost = `
	SELECT p.id, p.title, p.slug, COALESCE(p.excerpt, ''), p.content, p.status,
	       p.published_at, p.created_at, p.updated_at, COALESCE(p.cover_image_url, ''),
	       p.author_id, a.name, COALESCE(a.bio, ''), COALESCE(a.avatar_url, '')
	FROM posts p
	JOIN authors a ON a.id = p.author_id`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(sqlDB *sql.DB) Repository {
	return &postgresRepository{db: sqlDB}
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]*Post, error) {
	var status sql.NullString
	if f.Status != nil {
		status = sql.NullString{String: string(*f.Status), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, selectPost+`
	WHERE ($1::text IS NULL OR p.status = $1)
	  AND ($2 = '' OR p.title ILIKE '%' || $2 || '%' ESCAPE '\' OR p.excerpt ILIKE '%' || $2 || '%' ESCAPE '\')
	ORDER BY p.published_at DESC NULLS LAST, p.created_at DESC, p.id`,
		status, escapeLike(f.Search))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if err := loadAssociations(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.getOne(ctx, r.db, selectPost+` WHERE p.id = $1`, id)
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	return r.getOne(ctx, r.db, selectPost+` WHERE p.slug = $1`, slug)
}

func (r *postgresRepository) getOne(ctx context.Context, q queryer, query string, arg any) (*Post, error) {
	p, err := scanPost(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := loadAssociations(ctx, q, []*Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Post, tagIDs, categoryIDs []uuid.UUID) (*Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, title, slug, excerpt, content, status, published_at,
		                   created_at, updated_at, cover_image_url, author_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, ''), $11)`,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, string(p.Status), p.PublishedAt,
		p.CreatedAt, p.UpdatedAt, p.CoverImageURL, p.AuthorID)
	if err != nil {
		return nil, translate("insert post", err)
	}
	if err := replaceTags(ctx, tx, p.ID, tagIDs); err != nil {
		return nil, err
	}
	if err := replaceCategories(ctx, tx, p.ID, categoryIDs); err != nil {
		return nil, err
	}

	created, err := r.getOne(ctx, tx, selectPost+` WHERE p.id = $1`, p.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Post, tagIDs, categoryIDs *[]uuid.UUID) (*Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, excerpt = NULLIF($4, ''), content = $5, status = $6,
		    published_at = $7, updated_at = $8, cover_image_url = NULLIF($9, ''), author_id = $10
		WHERE id = $1`,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, string(p.Status),
		p.PublishedAt, p.UpdatedAt, p.CoverImageURL, p.AuthorID)
	if err != nil {
		return nil, translate("update post", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}
	if tagIDs != nil {
		if err := replaceTags(ctx, tx, p.ID, *tagIDs); err != nil {
			return nil, err
		}
	}
	if categoryIDs != nil {
		if err := replaceCategories(ctx, tx, p.ID, *categoryIDs); err != nil {
			return nil, err
		}
	}

	updated, err := r.getOne(ctx, tx, selectPost+` WHERE p.id = $1`, p.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Count(ctx context.Context, status *Status) (int, error) {
	var s sql.NullString
	if status != nil {
		s = sql.NullString{String: string(*status), Valid: true}
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE ($1::text IS NULL OR status = $1)`, s).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(bio, ''), COALESCE(avatar_url, '')
		FROM authors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	out := []Author{}
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CreateAuthor(ctx context.Context, a Author) (*Author, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authors (id, name, bio, avatar_url)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))`,
		a.ID, a.Name, a.Bio, a.AvatarURL)
	if err != nil {
		return nil, translate("insert author", err)
	}
	return &a, nil
}

func (r *postgresRepository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := []Tag{}
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *postgresRepository) CreateTag(ctx context.Context, t Tag) (*Tag, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES ($1, $2)`, t.ID, t.Name)
	if err != nil {
		return nil, translate("insert tag", err)
	}
	return &t, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		p           Post
		status      string
		publishedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &status,
		&publishedAt, &p.CreatedAt, &p.UpdatedAt, &p.CoverImageURL,
		&p.AuthorID, &p.Author.Name, &p.Author.Bio, &p.Author.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.Status = Status(status)
	p.Author.ID = p.AuthorID
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	p.Tags = []Tag{}
	p.Categories = []Category{}
	return &p, nil
}

// loadAssociations fills Tags and Categories of every post with two
// batched queries over the join tables.
func loadAssociations(ctx context.Context, q queryer, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1::uuid[])
		ORDER BY t.name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for rows.Next() {
		var postID uuid.UUID
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan post tag: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load tags: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
		SELECT pc.post_id, c.id, c.name
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ANY($1::uuid[])
		ORDER BY c.name`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID uuid.UUID
		var c Category
		if err := rows.Scan(&postID, &c.ID, &c.Name); err != nil {
			return fmt.Errorf("scan post category: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Categories = append(p.Categories, c)
		}
	}
	return rows.Err()
}

func replaceTags(ctx context.Context, tx *sql.Tx, postID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO post_tags (post_id, tag_id)
		SELECT $1, t.id FROM tags t WHERE t.id = ANY($2::uuid[])
		ON CONFLICT DO NOTHING`, postID, pq.Array(uuidStrings(tagIDs)))
	if err != nil {
		return fmt.Errorf("insert post tags: %w", err)
	}
	return nil
}

func replaceCategories(ctx context.Context, tx *sql.Tx, postID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post categories: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO post_categories (post_id, category_id)
		SELECT $1, c.id FROM categories c WHERE c.id = ANY($2::uuid[])
		ON CONFLICT DO NOTHING`, postID, pq.Array(uuidStrings(categoryIDs)))
	if err != nil {
		return fmt.Errorf("insert post categories: %w", err)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// translate maps constraint violations to sentinel errors, keeping the
// store's message.
func translate(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case pqErr.Code == pqUniqueViolation && pqErr.Constraint == "posts_slug_key":
		return fmt.Errorf("%w: %s", ErrSlugExists, pqErr.Message)
	case pqErr.Code == pqUniqueViolation && pqErr.Constraint == "tags_name_lower_key":
		return fmt.Errorf("%w: %s", ErrTagExists, pqErr.Message)
	case pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == "posts_author_id_fkey":
		return fmt.Errorf("%w: %s", ErrAuthorNotFound, pqErr.Message)
	case pqErr.Code == pqCheckViolation, pqErr.Code == pqNotNullViolation:
		return fmt.Errorf("%w: %s", ErrInvalidPost, pqErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

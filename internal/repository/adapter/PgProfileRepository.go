package adapter

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/repository/port"
)

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

var _ repository.ProfileRepository = (*PgProfileRepository)(nil)

var errNilPool = errors.New("PgProfileRepository: nil pool")

func (r *PgProfileRepository) EnsureProfile(ctx context.Context, id, fullName string) (*chat.Profile, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO chat.profiles (id, full_name)
		VALUES ($1::uuid, $2)
		ON CONFLICT (id) DO UPDATE
		SET full_name = CASE WHEN chat.profiles.full_name = '' THEN EXCLUDED.full_name ELSE chat.profiles.full_name END
		RETURNING id::text, full_name, preferred_language, avatar_url
	`, id, fullName)
	p, err := scanProfile(row)
	if err != nil {
		return nil, errors.Wrap(err, "ensure profile")
	}
	return p, nil
}

func (r *PgProfileRepository) GetProfile(ctx context.Context, id string) (*chat.Profile, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, full_name, preferred_language, avatar_url
		FROM chat.profiles
		WHERE id = $1::uuid
	`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrProfileNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get profile")
	}
	return p, nil
}

func (r *PgProfileRepository) SetLanguage(ctx context.Context, id string, lang chat.Language) error {
	return r.update(ctx, `UPDATE chat.profiles SET preferred_language = $2 WHERE id = $1::uuid`, id, lang.String())
}

func (r *PgProfileRepository) SetAvatarURL(ctx context.Context, id, url string) error {
	return r.update(ctx, `UPDATE chat.profiles SET avatar_url = $2 WHERE id = $1::uuid`, id, url)
}

func (r *PgProfileRepository) update(ctx context.Context, sql, id, value string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, sql, id, value)
	if err != nil {
		return errors.Wrap(err, "update profile")
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrProfileNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*chat.Profile, error) {
	var (
		p    chat.Profile
		lang *string
	)
	if err := row.Scan(&p.ID, &p.FullName, &lang, &p.AvatarURL); err != nil {
		return nil, err
	}
	if lang != nil {
		p.Language = chat.Language(*lang)
	}
	return &p, nil
}

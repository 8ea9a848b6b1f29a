package adapter

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	chat "kala-setu/internal/pkg/chat/application/domain"
	repository "kala-setu/internal/pkg/chat/persistence/repository/port"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

var errNilPool = errors.New("PgChatRepository: nil pool")

// conversationColumns selects a conversation with both participant profiles.
const conversationColumns = `
	c.id::text, c.last_message, c.updated_at, c.created_at,
	p1.id::text, p1.full_name, p1.preferred_language, p1.avatar_url,
	p2.id::text, p2.full_name, p2.preferred_language, p2.avatar_url
	FROM chat.conversations c
	JOIN chat.profiles p1 ON p1.id = c.participant1_id
	JOIN chat.profiles p2 ON p2.id = c.participant2_id`

func (r *PgChatRepository) FetchHistory(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, translated_content, created_at
		FROM chat.messages
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch history")
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Translated, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "fetch history")
	}
	return msgs, nil
}

func (r *PgChatRepository) AppendMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin append")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	out := m
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.messages (conversation_id, sender_id, content, translated_content)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text, created_at
	`, m.ConversationID, m.SenderID, m.Content, m.Translated).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}

	ct, err := tx.Exec(ctx, `
		UPDATE chat.conversations
		SET last_message = $2, updated_at = $3
		WHERE id = $1::uuid
	`, m.ConversationID, m.Content, out.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "update preview")
	}
	if ct.RowsAffected() == 0 {
		return nil, chat.ErrConversationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit append")
	}
	return &out, nil
}

func (r *PgChatRepository) CreateOrFetchConversation(ctx context.Context, a, b string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	p1, p2 := chat.CanonicalPair(a, b)

	// The no-op update makes RETURNING yield the existing row on conflict.
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat.conversations (participant1_id, participant2_id)
		VALUES ($1::uuid, $2::uuid)
		ON CONFLICT (participant1_id, participant2_id)
		DO UPDATE SET participant1_id = EXCLUDED.participant1_id
		RETURNING id::text
	`, p1, p2).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "upsert conversation")
	}
	return r.GetConversation(ctx, id)
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` WHERE c.id = $1::uuid`, id)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation")
	}
	return c, nil
}

func (r *PgChatRepository) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `SELECT `+conversationColumns+`
		WHERE c.participant1_id = $1::uuid OR c.participant2_id = $1::uuid
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	convs := make([]chat.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		convs = append(convs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	return convs, nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c            chat.Conversation
		lang1, lang2 *string
	)
	p1, p2 := &c.Participant1, &c.Participant2
	err := row.Scan(
		&c.ID, &c.LastMessage, &c.UpdatedAt, &c.CreatedAt,
		&p1.ID, &p1.FullName, &lang1, &p1.AvatarURL,
		&p2.ID, &p2.FullName, &lang2, &p2.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	if lang1 != nil {
		p1.Language = chat.Language(*lang1)
	}
	if lang2 != nil {
		p2.Language = chat.Language(*lang2)
	}
	return &c, nil
}

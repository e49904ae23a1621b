package postgres

import (
	"context"
	"time"

	"github.com/sajilotech/frontdesk/internal/domain"
)

func (l *Ledger) LogConversationTurn(ctx context.Context, sessionID, userMessage, botResponse string) error {
	const q = `INSERT INTO conversation_history (session_id, user_message, bot_response)
		VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := l.pool.Exec(ctx, q, sessionID, userMessage, botResponse)
	return err
}

func (l *Ledger) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	const q = `SELECT user_message, bot_response, created_at
		FROM conversation_history
		WHERE session_id=$1 ORDER BY created_at ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := l.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.UserMessage, &t.BotResponse, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (l *Ledger) LogSessionStart(ctx context.Context, sessionID, userAgent, ipAddress string) error {
	const q = `INSERT INTO session_metadata (session_id, last_activity, user_agent, ip_address)
		VALUES ($1, now(), $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			last_activity = now(),
			expired_at = NULL,
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := l.pool.Exec(ctx, q, sessionID, userAgent, ipAddress)
	return err
}

func (l *Ledger) LogSessionEnd(ctx context.Context, sessionID string) error {
	const q = `UPDATE session_metadata SET expired_at = now() WHERE session_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := l.pool.Exec(ctx, q, sessionID)
	return err
}

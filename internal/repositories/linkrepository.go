package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkdash/linkdash/internal/database"
	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/store"
)

// uniqueViolation — код PostgreSQL для нарушения уникального индекса.
const uniqueViolation = "23505"

// LinkRepositoryInterface определяет методы репозитория ссылок и кликов.
type LinkRepositoryInterface interface {
	SaveLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, id string) error
	SetLinkActive(ctx context.Context, id string, active bool) error
	ListLinks(ctx context.Context) ([]*model.Link, error)
	SaveClick(ctx context.Context, ev *model.ClickEvent) error
	ListClicks(ctx context.Context) ([]*model.ClickEvent, error)
	Ping(ctx context.Context) error
}

// LinkRepository реализует LinkRepositoryInterface с использованием PostgreSQL.
type LinkRepository struct {
	DB database.DBInterface
}

// NewLinkRepository создаёт новый экземпляр LinkRepository.
func NewLinkRepository(db database.DBInterface) *LinkRepository {
	return &LinkRepository{DB: db}
}

// SaveLink сохраняет ссылку. Уникальность алиаса обеспечивает индекс:
// конфликт транслируется в store.ErrAliasTaken.
func (r *LinkRepository) SaveLink(ctx context.Context, link *model.Link) error {
	query := `INSERT INTO links (id, original_url, alias, created_at, expires_at, active, owner)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.(*database.DB).Pool.Exec(ctx, query,
		link.ID, link.OriginalURL, link.Alias, link.CreatedAt, link.ExpiresAt, link.Active, link.Owner)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %q", store.ErrAliasTaken, link.Alias)
		}
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// DeleteLink удаляет ссылку по id. Отсутствие строки — не ошибка.
func (r *LinkRepository) DeleteLink(ctx context.Context, id string) error {
	_, err := r.DB.(*database.DB).Pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database delete error: %w", err)
	}
	return nil
}

// SetLinkActive помечает ссылку включённой или выключенной.
func (r *LinkRepository) SetLinkActive(ctx context.Context, id string, active bool) error {
	_, err := r.DB.(*database.DB).Pool.Exec(ctx,
		`UPDATE links SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("database update error: %w", err)
	}
	return nil
}

// ListLinks возвращает все ссылки, новые первыми.
func (r *LinkRepository) ListLinks(ctx context.Context) ([]*model.Link, error) {
	query := `SELECT id, original_url, alias, created_at, expires_at, active, owner
              FROM links ORDER BY created_at DESC`
	rows, err := r.DB.(*database.DB).Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var results []*model.Link
	for rows.Next() {
		link := &model.Link{}
		err := rows.Scan(&link.ID, &link.OriginalURL, &link.Alias,
			&link.CreatedAt, &link.ExpiresAt, &link.Active, &link.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, link)
	}
	return results, rows.Err()
}

// SaveClick добавляет событие клика. Записи только добавляются.
func (r *LinkRepository) SaveClick(ctx context.Context, ev *model.ClickEvent) error {
	query := `INSERT INTO click_events (id, link_id, ts, country, city, device, referrer, user_agent)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.(*database.DB).Pool.Exec(ctx, query,
		ev.ID, ev.LinkID, ev.Timestamp, ev.Country, ev.City, string(ev.Device), ev.Referrer, ev.UserAgent)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// ListClicks возвращает весь журнал кликов в порядке записи.
// Используется для прогрева агрегатора при старте.
func (r *LinkRepository) ListClicks(ctx context.Context) ([]*model.ClickEvent, error) {
	query := `SELECT id, link_id, ts, country, city, device, referrer, user_agent
              FROM click_events ORDER BY ts`
	rows, err := r.DB.(*database.DB).Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	defer rows.Close()

	var results []*model.ClickEvent
	for rows.Next() {
		ev := &model.ClickEvent{}
		var device string
		err := rows.Scan(&ev.ID, &ev.LinkID, &ev.Timestamp,
			&ev.Country, &ev.City, &device, &ev.Referrer, &ev.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ev.Device = model.Device(device)
		results = append(results, ev)
	}
	return results, rows.Err()
}

// Ping проверяет доступность базы данных.
func (r *LinkRepository) Ping(ctx context.Context) error {
	_, err := r.DB.(*database.DB).Pool.Exec(ctx, "SELECT 1")
	return err
}

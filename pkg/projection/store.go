package projection

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/flow"
	"github.com/dmitrymomot/authkit/pkg/pg"
)

// Store applies identity events to PostgreSQL and serves the resulting read
// models. It satisfies flow.UserRepository, flow.DeviceRepository and
// flow.EventEmitter.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Emit applies the event inline. Single-service deployments hand this
// directly to the flows; brokered deployments call Apply from the consumer.
func (s *Store) Emit(ctx context.Context, event flow.Event) error {
	return s.Apply(ctx, event)
}

// Apply materializes one event. Upserts are idempotent: replaying an event
// log converges on the same rows.
func (s *Store) Apply(ctx context.Context, event flow.Event) error {
	switch event.Type {
	case flow.EventUserUpserted:
		return s.applyUserUpserted(ctx, event)
	case flow.EventUserLoggedIn:
		return s.applyUserLoggedIn(ctx, event)
	case flow.EventDeviceSeen:
		return s.applyDeviceSeen(ctx, event)
	default:
		return ErrUnknownEventType
	}
}

type userUpsert struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	AvatarURL string
}

func parseUserUpsert(event flow.Event) (userUpsert, error) {
	userID, err := uuid.Parse(event.Payload["user_id"])
	if err != nil {
		return userUpsert{}, errors.Join(ErrInvalidPayload, err)
	}
	email := event.Payload["email"]
	if email == "" {
		return userUpsert{}, ErrInvalidPayload
	}
	return userUpsert{
		UserID:    userID,
		Email:     email,
		Name:      event.Payload["name"],
		AvatarURL: event.Payload["avatar_url"],
	}, nil
}

func (s *Store) applyUserUpserted(ctx context.Context, event flow.Event) error {
	up, err := parseUserUpsert(event)
	if err != nil {
		return err
	}

	// Conflict on email, not id: a flow without a wired user repository mints
	// a fresh id for an address that already has an account, and the row must
	// keep its original identity.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name       = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url)`,
		up.UserID, up.Email, up.Name, up.AvatarURL, event.At)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

type userLogin struct {
	UserID uuid.UUID
	IP     string
}

func parseUserLogin(event flow.Event) (userLogin, error) {
	userID, err := uuid.Parse(event.Payload["user_id"])
	if err != nil {
		return userLogin{}, errors.Join(ErrInvalidPayload, err)
	}
	return userLogin{UserID: userID, IP: event.Payload["ip"]}, nil
}

func (s *Store) applyUserLoggedIn(ctx context.Context, event flow.Event) error {
	login, err := parseUserLogin(event)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE users SET last_login_at = $2, last_login_ip = $3 WHERE id = $1`,
		login.UserID, event.At, login.IP)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

type deviceSeen struct {
	DeviceID  uuid.UUID
	UserID    uuid.UUID
	UserAgent string
}

func parseDeviceSeen(event flow.Event) (deviceSeen, error) {
	deviceID, err := uuid.Parse(event.Payload["device_id"])
	if err != nil {
		return deviceSeen{}, errors.Join(ErrInvalidPayload, err)
	}
	userID, err := uuid.Parse(event.Payload["user_id"])
	if err != nil {
		return deviceSeen{}, errors.Join(ErrInvalidPayload, err)
	}
	return deviceSeen{
		DeviceID:  deviceID,
		UserID:    userID,
		UserAgent: event.Payload["user_agent"],
	}, nil
}

func (s *Store) applyDeviceSeen(ctx context.Context, event flow.Event) error {
	seen, err := parseDeviceSeen(event)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO devices (id, user_id, user_agent, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, user_agent) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at`,
		seen.DeviceID, seen.UserID, seen.UserAgent, event.At)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

const userColumns = `id, email, name, avatar_url, created_at,
	COALESCE(last_login_at, 'epoch'::timestamptz), COALESCE(last_login_ip, '')`

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*flow.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*flow.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (*flow.User, error) {
	var user flow.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.CreatedAt, &user.LastLoginAt, &user.LastLoginIP)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, flow.ErrUserNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &user, nil
}

func (s *Store) FindByUser(ctx context.Context, userID uuid.UUID) ([]flow.Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_agent, first_seen_at, last_seen_at
		FROM devices WHERE user_id = $1
		ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var devices []flow.Device
	for rows.Next() {
		var d flow.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserAgent, &d.FirstSeenAt, &d.LastSeenAt); err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return devices, nil
}

func (s *Store) FindByUserAndAgent(ctx context.Context, userID uuid.UUID, userAgent string) (*flow.Device, error) {
	var d flow.Device
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, user_agent, first_seen_at, last_seen_at
		FROM devices WHERE user_id = $1 AND user_agent = $2`,
		userID, userAgent).Scan(&d.ID, &d.UserID, &d.UserAgent, &d.FirstSeenAt, &d.LastSeenAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return &d, nil
}

var (
	_ flow.UserRepository   = (*Store)(nil)
	_ flow.DeviceRepository = (*Store)(nil)
	_ flow.EventEmitter     = (*Store)(nil)
)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// ErrConflict is returned when a new user reuses a username, email, phone
// number or identity provider subject.
var ErrConflict = errors.New("postgres: unique constraint violated")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const selectUser = `SELECT u.id, u.username, u.email, u.phone_number, u.password_hash, u.cognito_sub,
	u.confirmed, u.blocked, u.is_verified, u.role_id, r.name AS role_name, r.type AS role_type,
	u.mfa_secret, u.mfa_temp_secret, u.mfa_temp_token, u.mfa_identifier, u.mfa_failed_attempts,
	u.created_at, u.updated_at
  FROM users u JOIN roles r ON r.id = u.role_id`

type userRow struct {
	ID                int64          `db:"id"`
	Username          string         `db:"username"`
	Email             string         `db:"email"`
	PhoneNumber       sql.NullString `db:"phone_number"`
	PasswordHash      string         `db:"password_hash"`
	CognitoSub        sql.NullString `db:"cognito_sub"`
	Confirmed         bool           `db:"confirmed"`
	Blocked           bool           `db:"blocked"`
	IsVerified        bool           `db:"is_verified"`
	RoleID            int64          `db:"role_id"`
	RoleName          string         `db:"role_name"`
	RoleType          string         `db:"role_type"`
	MFASecret         sql.NullString `db:"mfa_secret"`
	MFATempSecret     sql.NullString `db:"mfa_temp_secret"`
	MFATempToken      sql.NullString `db:"mfa_temp_token"`
	MFAIdentifier     sql.NullString `db:"mfa_identifier"`
	MFAFailedAttempts int            `db:"mfa_failed_attempts"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r userRow) toUser() *account.User {
	return &account.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber.String,
		PasswordHash: r.PasswordHash,
		CognitoSub:   r.CognitoSub.String,
		Confirmed:    r.Confirmed,
		Blocked:      r.Blocked,
		IsVerified:   r.IsVerified,
		Role:         account.Role{ID: r.RoleID, Name: r.RoleName, Type: r.RoleType},
		MFA: account.MFAState{
			Secret:         r.MFASecret.String,
			TempSecret:     r.MFATempSecret.String,
			TempToken:      r.MFATempToken.String,
			Identifier:     r.MFAIdentifier.String,
			FailedAttempts: r.MFAFailedAttempts,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Store implements the engine's user and profile stores.
type Store struct {
	db   *sqlx.DB
	node *snowflake.Node
	now  func() time.Time
}

// Open connects to dsn with the pgx driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// New returns a Store generating user ids on node.
func New(db *sqlx.DB, node *snowflake.Node) *Store {
	return &Store{db: db, node: node, now: time.Now}
}

func (s *Store) FindUser(ctx context.Context, lookup account.Lookup) (*account.User, error) {
	if lookup.Empty() {
		return nil, account.ErrNotFound
	}
	where, args, err := lookupClause("u.email", "u.phone_number", lookup)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s.getUser(ctx, selectUser+" WHERE "+where+" ORDER BY u.id LIMIT 1", args...)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*account.User, error) {
	return s.getUser(ctx, selectUser+" WHERE u.id = ?", id)
}

func (s *Store) GetUserByCognitoSub(ctx context.Context, sub string) (*account.User, error) {
	if sub == "" {
		return nil, account.ErrNotFound
	}
	return s.getUser(ctx, selectUser+" WHERE u.cognito_sub = ?", sub)
}

func (s *Store) GetUserByMFATempToken(ctx context.Context, token string) (*account.User, error) {
	if token == "" {
		return nil, account.ErrNotFound
	}
	return s.getUser(ctx, selectUser+" WHERE u.mfa_temp_token = ?", token)
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	q := s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`)
	if err := s.db.GetContext(ctx, &exists, q, username); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a user under a fresh snowflake id. An unknown RoleID is
// [account.ErrNotFound]; a duplicate is [ErrConflict].
func (s *Store) CreateUser(ctx context.Context, input account.NewUser) (*account.User, error) {
	id := s.node.Generate().Int64()
	now := s.now().UTC()

	q := `INSERT INTO users (id, username, email, phone_number, password_hash, confirmed, blocked, is_verified, role_id, created_at, updated_at)
		VALUES (:id, :username, :email, :phone_number, :password_hash, :confirmed, :blocked, :is_verified, :role_id, :created_at, :updated_at)`
	params := map[string]any{
		"id":            id,
		"username":      input.Username,
		"email":         strings.ToLower(input.Email),
		"phone_number":  nullString(input.PhoneNumber),
		"password_hash": input.PasswordHash,
		"confirmed":     input.Confirmed,
		"blocked":       input.Blocked,
		"is_verified":   input.IsVerified,
		"role_id":       input.RoleID,
		"created_at":    now,
		"updated_at":    now,
	}
	if _, err := s.db.NamedExecContext(ctx, q, params); err != nil {
		return nil, mapWriteError(err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (s *Store) LinkCognitoSub(ctx context.Context, id int64, sub string) error {
	return s.exec(ctx, `UPDATE users SET cognito_sub = ?, updated_at = ? WHERE id = ?`, nullString(sub), s.now().UTC(), id)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, s.now().UTC(), id)
}

// UpdateMFA replaces the whole MFA state. Empty fields are stored as NULL so
// the unique temp token index only covers live sessions.
func (s *Store) UpdateMFA(ctx context.Context, id int64, state account.MFAState) error {
	return s.exec(ctx, `UPDATE users SET mfa_secret = ?, mfa_temp_secret = ?, mfa_temp_token = ?,
		mfa_identifier = ?, mfa_failed_attempts = ?, updated_at = ? WHERE id = ?`,
		nullString(state.Secret), nullString(state.TempSecret), nullString(state.TempToken),
		nullString(state.Identifier), state.FailedAttempts, s.now().UTC(), id)
}

func (s *Store) SetVerified(ctx context.Context, id int64, verified bool) error {
	return s.exec(ctx, `UPDATE users SET is_verified = ?, updated_at = ? WHERE id = ?`, verified, s.now().UTC(), id)
}

func (s *Store) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return s.exec(ctx, `UPDATE users SET blocked = ?, updated_at = ? WHERE id = ?`, blocked, s.now().UTC(), id)
}

func (s *Store) FindRole(ctx context.Context, nameOrType string) (*account.Role, error) {
	var role account.Role
	q := s.db.Rebind(`SELECT id, name, type FROM roles WHERE lower(name) = lower(?) OR lower(type) = lower(?) ORDER BY id LIMIT 1`)
	if err := s.db.GetContext(ctx, &role, q, nameOrType, nameOrType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &role, nil
}

func (s *Store) ClientProfileExists(ctx context.Context, lookup account.Lookup) (bool, error) {
	if lookup.Empty() {
		return false, nil
	}
	where, args, err := lookupClause("email", "phone_number", lookup)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	var exists bool
	q := s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM client_profiles WHERE ` + where + `)`)
	if err := s.db.GetContext(ctx, &exists, q, args...); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// AddClientProfile records an onboarding profile. Used by seed scripts and
// tests; the onboarding forms write the table directly.
func (s *Store) AddClientProfile(ctx context.Context, email, phone string) error {
	q := s.db.Rebind(`INSERT INTO client_profiles (email, phone_number) VALUES (?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, nullString(strings.ToLower(email)), nullString(phone)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, query string, args ...any) (*account.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row.toUser(), nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

// lookupClause matches emailCol against the lookup email and phoneCol against
// any of its phone forms. The clause uses ? placeholders.
func lookupClause(emailCol, phoneCol string, lookup account.Lookup) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	if lookup.Email != "" {
		parts = append(parts, "lower("+emailCol+") = lower(?)")
		args = append(args, lookup.Email)
	}
	if len(lookup.Phones) > 0 {
		clause, phoneArgs, err := sqlx.In(phoneCol+" IN (?)", lookup.Phones)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, phoneArgs...)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return account.ErrNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
	"github.com/georgemunganga/markethub-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateStore(ctx context.Context, s *Store) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO stores (id, owner_id, name, slug, description, visibility, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.OwnerID, s.Name, s.Slug, s.Description, s.Visibility, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperror.Conflict("store slug %q is already taken", s.Slug)
	}
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetStore(ctx context.Context, id uuid.UUID) (*Store, error) {
	s := &Store{}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, owner_id, name, slug, description, visibility, status, created_at, updated_at
		FROM stores WHERE id=$1`, id,
	).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Slug, &s.Description, &s.Visibility, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("store %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func (r *postgresRepo) UpdateStore(ctx context.Context, s *Store) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE stores
		SET owner_id=$2, name=$3, description=$4, visibility=$5, status=$6, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`,
		s.ID, s.OwnerID, s.Name, s.Description, s.Visibility, s.Status,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("store %s not found", s.ID)
	}
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	return nil
}

// ── memberships ──────────────────────────────────────────────────────────────

type memberPostgresRepo struct{ db *sql.DB }

func NewMemberPostgresRepository(db *sql.DB) MemberRepository { return &memberPostgresRepo{db: db} }

func (r *memberPostgresRepo) CreateMember(ctx context.Context, m *Member) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO store_members (id, store_id, user_id, role, permissions, invited_by, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		m.ID, m.StoreID, m.UserID, m.Role, pq.Array(m.Permissions.Names()), m.InvitedBy, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperror.Conflict("user %s is already a member of store %s", m.UserID, m.StoreID)
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *memberPostgresRepo) GetMember(ctx context.Context, storeID, userID uuid.UUID) (*Member, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, store_id, user_id, role, permissions, invited_by, is_active, created_at, updated_at
		FROM store_members WHERE store_id=$1 AND user_id=$2`, storeID, userID)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user %s is not a member of store %s", userID, storeID)
	}
	return m, err
}

func (r *memberPostgresRepo) UpdateMember(ctx context.Context, m *Member) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE store_members SET role=$2, permissions=$3, is_active=$4, updated_at=NOW()
		WHERE id=$1`,
		m.ID, m.Role, pq.Array(m.Permissions.Names()), m.IsActive)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("membership %s not found", m.ID)
	}
	return nil
}

func (r *memberPostgresRepo) ListMembers(ctx context.Context, storeID uuid.UUID) ([]*Member, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, store_id, user_id, role, permissions, invited_by, is_active, created_at, updated_at
		FROM store_members WHERE store_id=$1 AND is_active ORDER BY created_at`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanMember(row scanner) (*Member, error) {
	m := &Member{}
	var perms pq.StringArray
	var invitedBy uuid.NullUUID
	if err := row.Scan(&m.ID, &m.StoreID, &m.UserID, &m.Role, &perms, &invitedBy, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	set, err := permission.ParseSet(perms)
	if err != nil {
		return nil, err
	}
	m.Permissions = set
	if invitedBy.Valid {
		m.InvitedBy = &invitedBy.UUID
	}
	return m, nil
}

// ── access grants ────────────────────────────────────────────────────────────

type grantPostgresRepo struct{ db *sql.DB }

func NewGrantPostgresRepository(db *sql.DB) GrantRepository { return &grantPostgresRepo{db: db} }

const grantColumns = `id, store_id, user_id, granted_by, access_level, expires_at, is_revoked, revoked_at, created_at`

func (r *grantPostgresRepo) CreateGrant(ctx context.Context, g *AccessGrant) error {
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO store_access_grants (id, store_id, user_id, granted_by, access_level, expires_at, is_revoked)
		VALUES ($1,$2,$3,$4,$5,$6,false)
		RETURNING created_at`,
		g.ID, g.StoreID, g.UserID, g.GrantedBy, g.Level, g.ExpiresAt,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

func (r *grantPostgresRepo) FindActiveGrant(ctx context.Context, storeID, userID uuid.UUID, now time.Time) (*AccessGrant, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM store_access_grants
		WHERE store_id=$1 AND user_id=$2
		  AND is_revoked = false
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC
		LIMIT 1`, storeID, userID, now)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("no active grant for user %s on store %s", userID, storeID)
	}
	return g, err
}

func (r *grantPostgresRepo) RevokeGrant(ctx context.Context, grantID uuid.UUID, revokedAt time.Time) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE store_access_grants SET is_revoked = true, revoked_at = $2
		WHERE id=$1 AND is_revoked = false`, grantID, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke access grant: %w", err)
	}
	return nil
}

func (r *grantPostgresRepo) ListGrants(ctx context.Context, storeID uuid.UUID) ([]*AccessGrant, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+grantColumns+` FROM store_access_grants
		WHERE store_id=$1 ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list access grants: %w", err)
	}
	defer rows.Close()

	var out []*AccessGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGrant(row scanner) (*AccessGrant, error) {
	g := &AccessGrant{}
	var expiresAt, revokedAt sql.NullTime
	if err := row.Scan(&g.ID, &g.StoreID, &g.UserID, &g.GrantedBy, &g.Level, &expiresAt, &g.IsRevoked, &revokedAt, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan access grant: %w", err)
	}
	if expiresAt.Valid {
		g.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		g.RevokedAt = &revokedAt.Time
	}
	return g, nil
}

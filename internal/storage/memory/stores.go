package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/store"
)

var (
	_ store.Repository       = (*Store)(nil)
	_ store.MemberRepository = (*Store)(nil)
	_ store.GrantRepository  = (*Store)(nil)
)

func (s *Store) CreateStore(ctx context.Context, st *store.Store) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range s.t.stores {
		if r.val.Slug == st.Slug {
			return apperror.Conflict("store slug %q is already taken", st.Slug)
		}
	}
	now := s.now()
	st.CreatedAt, st.UpdatedAt = now, now
	s.t.stores[st.ID] = record[store.Store]{seq: s.next(), val: *st}
	return nil
}

func (s *Store) GetStore(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := s.t.stores[id]
	if !ok {
		return nil, apperror.NotFound("store %s not found", id)
	}
	st := r.val
	return &st, nil
}

func (s *Store) UpdateStore(ctx context.Context, st *store.Store) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.stores[st.ID]
	if !ok {
		return apperror.NotFound("store %s not found", st.ID)
	}
	st.UpdatedAt = s.now()
	r.val.OwnerID = st.OwnerID
	r.val.Name = st.Name
	r.val.Description = st.Description
	r.val.Visibility = st.Visibility
	r.val.Status = st.Status
	r.val.UpdatedAt = st.UpdatedAt
	s.t.stores[st.ID] = r
	return nil
}

// ── memberships ──────────────────────────────────────────────────────────────

func (s *Store) CreateMember(ctx context.Context, m *store.Member) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range s.t.members {
		if r.val.StoreID == m.StoreID && r.val.UserID == m.UserID {
			return apperror.Conflict("user %s is already a member of store %s", m.UserID, m.StoreID)
		}
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	s.t.members[m.ID] = record[store.Member]{seq: s.next(), val: *m}
	return nil
}

func (s *Store) GetMember(ctx context.Context, storeID, userID uuid.UUID) (*store.Member, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	for _, r := range s.t.members {
		if r.val.StoreID == storeID && r.val.UserID == userID {
			m := r.val
			return &m, nil
		}
	}
	return nil, apperror.NotFound("user %s is not a member of store %s", userID, storeID)
}

func (s *Store) UpdateMember(ctx context.Context, m *store.Member) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.members[m.ID]
	if !ok {
		return apperror.NotFound("membership %s not found", m.ID)
	}
	m.UpdatedAt = s.now()
	r.val.Role = m.Role
	r.val.Permissions = m.Permissions
	r.val.IsActive = m.IsActive
	r.val.UpdatedAt = m.UpdatedAt
	s.t.members[m.ID] = r
	return nil
}

// ListMembers returns the store's active members, oldest first.
func (s *Store) ListMembers(ctx context.Context, storeID uuid.UUID) ([]*store.Member, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var rows []record[store.Member]
	for _, r := range s.t.members {
		if r.val.StoreID == storeID && r.val.IsActive {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]*store.Member, 0, len(rows))
	for _, r := range rows {
		m := r.val
		out = append(out, &m)
	}
	return out, nil
}

// ── access grants ────────────────────────────────────────────────────────────

func (s *Store) CreateGrant(ctx context.Context, g *store.AccessGrant) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	g.CreatedAt = s.now()
	g.IsRevoked = false
	g.RevokedAt = nil
	s.t.grants[g.ID] = record[store.AccessGrant]{seq: s.next(), val: *g}
	return nil
}

func (s *Store) FindActiveGrant(ctx context.Context, storeID, userID uuid.UUID, now time.Time) (*store.AccessGrant, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var found *record[store.AccessGrant]
	for _, r := range s.t.grants {
		if r.val.StoreID != storeID || r.val.UserID != userID || !r.val.ActiveAt(now) {
			continue
		}
		if found == nil || r.seq > found.seq {
			r := r
			found = &r
		}
	}
	if found == nil {
		return nil, apperror.NotFound("no active grant for user %s on store %s", userID, storeID)
	}
	g := found.val
	return &g, nil
}

func (s *Store) RevokeGrant(ctx context.Context, grantID uuid.UUID, revokedAt time.Time) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.grants[grantID]
	if !ok {
		return apperror.NotFound("access grant %s not found", grantID)
	}
	r.val.IsRevoked = true
	r.val.RevokedAt = &revokedAt
	s.t.grants[grantID] = r
	return nil
}

// ListGrants returns every grant of the store, newest first.
func (s *Store) ListGrants(ctx context.Context, storeID uuid.UUID) ([]*store.AccessGrant, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var rows []record[store.AccessGrant]
	for _, r := range s.t.grants {
		if r.val.StoreID == storeID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]*store.AccessGrant, 0, len(rows))
	for _, r := range rows {
		g := r.val
		out = append(out, &g)
	}
	return out, nil
}

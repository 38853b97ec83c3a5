package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

type userRepo struct{ *view }

func (r userRepo) Create(ctx context.Context, u *models.User) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email", "already registered")
		}
	}
	u.ID = t.nextID("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	t.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, ok := t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, u := range t.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) Update(ctx context.Context, u *models.User) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := t.users[u.ID]; !ok {
		return missing("user", u.ID)
	}
	for id, existing := range t.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email", "already registered")
		}
	}
	t.users[u.ID] = *u
	return nil
}

type profileRepo struct{ *view }

func (r profileRepo) Create(ctx context.Context, p *models.Profile) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.profiles {
		if existing.UserID == p.UserID {
			return apperr.Conflict("user_id", "profile already exists")
		}
	}
	p.ID = t.nextID("profiles")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	t.profiles[p.ID] = *p
	return nil
}

func (r profileRepo) GetByUser(ctx context.Context, userID int64) (*models.Profile, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return profileOf(t, userID), nil
}

func profileOf(t *tables, userID int64) *models.Profile {
	for _, p := range t.profiles {
		if p.UserID == userID {
			return &p
		}
	}
	return nil
}

func (r profileRepo) Update(ctx context.Context, p *models.Profile) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := t.profiles[p.ID]; !ok {
		return missing("profile", p.ID)
	}
	t.profiles[p.ID] = *p
	return nil
}

func (r profileRepo) List(ctx context.Context) ([]models.Profile, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Profile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type principalRepo struct{ *view }

func (r principalRepo) LoadPrincipal(ctx context.Context, userID int64) (*identity.Principal, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, ok := t.users[userID]
	if !ok {
		return nil, nil
	}
	p := &identity.Principal{User: u, Profile: profileOf(t, userID)}

	mandateIDs := make([]int64, 0)
	for id, m := range t.mandates {
		if m.UserID == userID {
			mandateIDs = append(mandateIDs, id)
		}
	}
	sort.Slice(mandateIDs, func(i, j int) bool { return mandateIDs[i] < mandateIDs[j] })
	for _, id := range mandateIDs {
		p.Mandates = append(p.Mandates, t.mandates[id])
	}

	poles := make(map[int64]bool)
	for _, pole := range t.poles {
		if pole.HeadUserID == userID {
			poles[pole.ID] = true
		}
	}
	for _, m := range t.memberships {
		if m.UserID == userID {
			poles[m.PoleID] = true
		}
	}
	for id := range poles {
		p.PoleIDs = append(p.PoleIDs, id)
	}
	sort.Slice(p.PoleIDs, func(i, j int) bool { return p.PoleIDs[i] < p.PoleIDs[j] })
	return p, nil
}

type companyRepo struct{ *view }

func (r companyRepo) Create(ctx context.Context, c *models.Company) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := companyCodeTaken(t, c); err != nil {
		return err
	}
	c.ID = t.nextID("companies")
	t.companies[c.ID] = *c
	return nil
}

func companyCodeTaken(t *tables, c *models.Company) error {
	for id, existing := range t.companies {
		if id != c.ID && existing.Code == c.Code {
			return apperr.Conflict("code", "company code already used")
		}
	}
	return nil
}

func (r companyRepo) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := t.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r companyRepo) List(ctx context.Context) ([]models.Company, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Company, 0, len(t.companies))
	for _, c := range t.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r companyRepo) Update(ctx context.Context, c *models.Company) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := t.companies[c.ID]; !ok {
		return missing("company", c.ID)
	}
	if err := companyCodeTaken(t, c); err != nil {
		return err
	}
	t.companies[c.ID] = *c
	return nil
}

type poleRepo struct{ *view }

func (r poleRepo) Create(ctx context.Context, p *models.Pole) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.poles {
		if existing.Name == p.Name {
			return apperr.Conflict("name", "pôle name already used")
		}
	}
	p.ID = t.nextID("poles")
	stored := *p
	stored.ProblemTypes = append([]string(nil), p.ProblemTypes...)
	t.poles[p.ID] = stored
	return nil
}

func (r poleRepo) GetByID(ctx context.Context, id int64) (*models.Pole, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := t.poles[id]
	if !ok {
		return nil, nil
	}
	p.ProblemTypes = append([]string(nil), p.ProblemTypes...)
	return &p, nil
}

func (r poleRepo) List(ctx context.Context) ([]models.Pole, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Pole, 0, len(t.poles))
	for _, p := range t.poles {
		p.ProblemTypes = append([]string(nil), p.ProblemTypes...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r poleRepo) AddMember(ctx context.Context, m *models.PoleMembership) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.memberships {
		if existing.PoleID == m.PoleID && existing.UserID == m.UserID {
			return apperr.Conflict("user_id", "already a member of this pôle")
		}
	}
	m.ID = t.nextID("memberships")
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	t.memberships[m.ID] = *m
	return nil
}

func (r poleRepo) GetMember(ctx context.Context, poleID, userID int64) (*models.PoleMembership, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, m := range t.memberships {
		if m.PoleID == poleID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r poleRepo) UpdateMember(ctx context.Context, m *models.PoleMembership) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := t.memberships[m.ID]
	if !ok {
		return missing("pole membership", m.ID)
	}
	existing.Role = m.Role
	t.memberships[m.ID] = existing
	*m = existing
	return nil
}

func (r poleRepo) SetMemberRoles(ctx context.Context, userID int64, role models.PoleRole) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for id, m := range t.memberships {
		if m.UserID == userID {
			m.Role = role
			t.memberships[id] = m
		}
	}
	return nil
}

func (r poleRepo) ListMembers(ctx context.Context, poleID int64) ([]models.PoleMembership, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.PoleMembership, 0)
	for _, m := range t.memberships {
		if m.PoleID == poleID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type delegateRepo struct{ *view }

func (r delegateRepo) Create(ctx context.Context, m *models.DelegateMandate) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := mandateTaken(t, m); err != nil {
		return err
	}
	m.ID = t.nextID("mandates")
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	t.mandates[m.ID] = *m
	return nil
}

func mandateTaken(t *tables, m *models.DelegateMandate) error {
	for id, existing := range t.mandates {
		if id != m.ID && existing.UserID == m.UserID && existing.CompanyID == m.CompanyID {
			return apperr.Conflict("company_id", "user already represents this company")
		}
	}
	return nil
}

func (r delegateRepo) GetByID(ctx context.Context, id int64) (*models.DelegateMandate, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := t.mandates[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r delegateRepo) List(ctx context.Context) ([]models.DelegateMandate, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.DelegateMandate, 0, len(t.mandates))
	for _, m := range t.mandates {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r delegateRepo) Update(ctx context.Context, m *models.DelegateMandate) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := t.mandates[m.ID]; !ok {
		return missing("delegate mandate", m.ID)
	}
	if err := mandateTaken(t, m); err != nil {
		return err
	}
	t.mandates[m.ID] = *m
	return nil
}

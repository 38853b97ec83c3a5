package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

type CompanyInput struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
	Sector  string `json:"sector"`
}

func (in *CompanyInput) validate() error {
	var v apperr.Validation
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	if in.Name == "" {
		v.Add("name", "required")
	}
	if in.Code == "" {
		v.Add("code", "required")
	}
	return v.Err()
}

// Companies are public reference data: reads need no principal.

func (s *Service) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return s.store.Companies().List(ctx)
}

func (s *Service) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	c, err := s.store.Companies().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("company")
	}
	return c, nil
}

func (s *Service) CreateCompany(ctx context.Context, p *identity.Principal, in CompanyInput) (*models.Company, error) {
	if err := s.guard(p, referenceChain, true); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &models.Company{Name: in.Name, Code: in.Code, Address: in.Address, Sector: in.Sector}
	if err := s.store.Companies().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, p *identity.Principal, id int64, in CompanyInput) (*models.Company, error) {
	if err := s.guard(p, referenceChain, true); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Code, c.Address, c.Sector = in.Name, in.Code, in.Address, in.Sector
	if err := s.store.Companies().Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

type PoleInput struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ProblemTypes []string `json:"problem_types"`
}

type MemberInput struct {
	UserID int64           `json:"user_id"`
	Role   models.PoleRole `json:"role"`
}

func (s *Service) ListPoles(ctx context.Context, p *identity.Principal) ([]models.Pole, error) {
	if err := s.guard(p, poleChain, false); err != nil {
		return nil, err
	}
	return s.store.Poles().List(ctx)
}

func (s *Service) GetPole(ctx context.Context, p *identity.Principal, id int64) (*models.Pole, error) {
	if err := s.guard(p, poleChain, false); err != nil {
		return nil, err
	}
	return s.pole(ctx, s.store, id)
}

func (s *Service) pole(ctx context.Context, repos repository.Repos, id int64) (*models.Pole, error) {
	pole, err := repos.Poles().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pole == nil {
		return nil, apperr.NotFound("pole")
	}
	return pole, nil
}

// CreatePole makes the caller the head of the new pôle.
func (s *Service) CreatePole(ctx context.Context, p *identity.Principal, in PoleInput) (*models.Pole, error) {
	if err := s.guard(p, poleChain, true); err != nil {
		return nil, err
	}
	var v apperr.Validation
	name := strings.TrimSpace(in.Name)
	if name == "" {
		v.Add("name", "required")
	}
	for _, t := range in.ProblemTypes {
		if !models.ValidProblemType(t) {
			v.Add("problem_types", fmt.Sprintf("unknown problem type %q", t))
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	pole := &models.Pole{
		Name:         name,
		Description:  in.Description,
		HeadUserID:   p.ID(),
		ProblemTypes: in.ProblemTypes,
	}
	if err := s.store.Poles().Create(ctx, pole); err != nil {
		return nil, err
	}
	return pole, nil
}

func (s *Service) ListPoleMembers(ctx context.Context, p *identity.Principal, poleID int64) ([]models.PoleMembership, error) {
	if err := s.guard(p, poleChain, false); err != nil {
		return nil, err
	}
	if _, err := s.pole(ctx, s.store, poleID); err != nil {
		return nil, err
	}
	return s.store.Poles().ListMembers(ctx, poleID)
}

// AddPoleMember adds a membership. A pôle manager may only staff pôles
// they head or belong to; a duplicate membership is a conflict.
func (s *Service) AddPoleMember(ctx context.Context, p *identity.Principal, poleID int64, in MemberInput) (*models.PoleMembership, error) {
	if err := s.guard(p, poleChain, true); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.PoleRoleMember
	} else if !in.Role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown pôle role %q", in.Role))
	}

	var m *models.PoleMembership
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		if _, err := s.pole(ctx, tx, poleID); err != nil {
			return err
		}
		if role, _ := identity.ResolveRole(p); role == models.RolePoleManager && !p.InPole(poleID) {
			s.metrics.Denied("object:pole")
			return apperr.ErrForbidden
		}
		if err := userExists(ctx, tx, "user_id", in.UserID); err != nil {
			return err
		}
		m = &models.PoleMembership{PoleID: poleID, UserID: in.UserID, Role: in.Role}
		if err := tx.Poles().AddMember(ctx, m); err != nil {
			return err
		}
		return syncProfileRole(ctx, tx, m.UserID, m.Role)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

type MemberPatch struct {
	Role models.PoleRole `json:"role" binding:"required"`
}

// UpdatePoleMember changes the pôle role of an existing member and carries
// it over to the member's profile role.
func (s *Service) UpdatePoleMember(ctx context.Context, p *identity.Principal, poleID, userID int64, patch MemberPatch) (*models.PoleMembership, error) {
	if err := s.guard(p, poleChain, true); err != nil {
		return nil, err
	}
	if !patch.Role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown pôle role %q", patch.Role))
	}

	var m *models.PoleMembership
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		if _, err := s.pole(ctx, tx, poleID); err != nil {
			return err
		}
		if role, _ := identity.ResolveRole(p); role == models.RolePoleManager && !p.InPole(poleID) {
			s.metrics.Denied("object:pole")
			return apperr.ErrForbidden
		}
		var err error
		m, err = tx.Poles().GetMember(ctx, poleID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("pole membership")
		}
		if m.Role == patch.Role {
			return nil
		}
		m.Role = patch.Role
		if err := tx.Poles().UpdateMember(ctx, m); err != nil {
			return err
		}
		return syncProfileRole(ctx, tx, userID, m.Role)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// poleRoleFor maps a profile role onto the pôle role its memberships take.
func poleRoleFor(role models.Role) models.PoleRole {
	switch role {
	case models.RoleAdmin, models.RolePoleManager:
		return models.PoleRoleHead
	case models.RoleDelegate:
		return models.PoleRoleAssistant
	}
	return models.PoleRoleMember
}

// syncProfileRole carries a pôle role over to the profile: head makes a
// pôle manager and member a plain member. Assistants keep their profile
// role, and admin profiles are never rewritten.
func syncProfileRole(ctx context.Context, tx repository.Repos, userID int64, poleRole models.PoleRole) error {
	var want models.Role
	switch poleRole {
	case models.PoleRoleHead:
		want = models.RolePoleManager
	case models.PoleRoleMember:
		want = models.RoleMember
	default:
		return nil
	}
	profile, err := tx.Profiles().GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil || profile.Role == models.RoleAdmin || profile.Role == want {
		return nil
	}
	profile.Role = want
	return tx.Profiles().Update(ctx, profile)
}

type DelegateInput struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Active    *bool  `json:"active"`
}

type DelegatePatch struct {
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Active *bool   `json:"active"`
}

func (s *Service) ListDelegates(ctx context.Context, p *identity.Principal) ([]models.DelegateMandate, error) {
	if err := s.guard(p, referenceChain, false); err != nil {
		return nil, err
	}
	return s.store.Delegates().List(ctx)
}

// CreateDelegate records a mandate and gives the user the delegate role in
// the same transaction.
func (s *Service) CreateDelegate(ctx context.Context, p *identity.Principal, in DelegateInput) (*models.DelegateMandate, error) {
	if err := s.guard(p, referenceChain, true); err != nil {
		return nil, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	var m *models.DelegateMandate
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		if err := userExists(ctx, tx, "user_id", in.UserID); err != nil {
			return err
		}
		company, err := tx.Companies().GetByID(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if company == nil {
			return apperr.Invalid("company_id", "unknown company")
		}
		m = &models.DelegateMandate{
			UserID:    in.UserID,
			CompanyID: in.CompanyID,
			Phone:     strings.TrimSpace(in.Phone),
			Email:     strings.TrimSpace(in.Email),
			Active:    active,
		}
		if err := tx.Delegates().Create(ctx, m); err != nil {
			return err
		}
		return promoteToDelegate(ctx, tx, m.UserID)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateDelegate(ctx context.Context, p *identity.Principal, id int64, patch DelegatePatch) (*models.DelegateMandate, error) {
	if err := s.guard(p, referenceChain, true); err != nil {
		return nil, err
	}

	var m *models.DelegateMandate
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		var err error
		m, err = tx.Delegates().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("delegate")
		}
		setString(&m.Phone, patch.Phone)
		setString(&m.Email, patch.Email)
		if patch.Active != nil {
			m.Active = *patch.Active
		}
		if err := tx.Delegates().Update(ctx, m); err != nil {
			return err
		}
		return promoteToDelegate(ctx, tx, m.UserID)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// promoteToDelegate sets the profile role, creating the profile if needed.
// Admin profiles keep their role.
func promoteToDelegate(ctx context.Context, tx repository.Repos, userID int64) error {
	profile, err := tx.Profiles().GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return tx.Profiles().Create(ctx, &models.Profile{UserID: userID, Role: models.RoleDelegate})
	}
	if profile.Role == models.RoleDelegate || profile.Role == models.RoleAdmin {
		return nil
	}
	profile.Role = models.RoleDelegate
	return tx.Profiles().Update(ctx, profile)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and
// deactivated accounts alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// inputs checks the binding tags of service inputs, the same tags gin
// checks when it decodes a request body.
var inputs = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(apperr.JSONName)
	return v
}

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CreateUserInput is the administrative variant of RegisterInput.
type CreateUserInput struct {
	RegisterInput
	Role    models.Role `json:"role"`
	IsStaff bool        `json:"is_staff"`
}

type ProfilePatch struct {
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	CompanyID    *int64     `json:"company_id"`
	Phone        *string    `json:"phone"`
	JobTitle     *string    `json:"job_title"`
	Department   *string    `json:"department"`
	ContractType *string    `json:"contract_type"`
	HiredOn      *time.Time `json:"hired_on"`
}

// AdminProfilePatch is what an admin may change on any account.
type AdminProfilePatch struct {
	Role      *models.Role `json:"role"`
	IsActive  *bool        `json:"is_active"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
}

// Account is a user with its profile.
type Account struct {
	User    models.User    `json:"user"`
	Profile models.Profile `json:"profile"`
}

func (in *RegisterInput) validate() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return apperr.FromValidator(inputs.Struct(in))
}

// Register creates an active user and its member profile in one
// transaction. Anyone may register.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	return s.createAccount(ctx, in, models.RoleMember, false)
}

// CreateUser lets an admin create an account with any role.
func (s *Service) CreateUser(ctx context.Context, p *identity.Principal, in CreateUserInput) (*Account, error) {
	if err := s.guard(p, adminChain, true); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	} else if !role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	return s.createAccount(ctx, in.RegisterInput, role, in.IsStaff)
}

func (s *Service) createAccount(ctx context.Context, in RegisterInput, role models.Role, staff bool) (*Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var acc Account
	err = s.store.WithTx(ctx, func(tx repository.Repos) error {
		existing, err := tx.Users().GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Invalid("email", "already registered")
		}
		u := &models.User{
			Email:        in.Email,
			PasswordHash: string(hash),
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			IsStaff:      staff,
			IsActive:     true,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		profile := &models.Profile{UserID: u.ID, Role: role}
		if err := tx.Profiles().Create(ctx, profile); err != nil {
			return err
		}
		acc = Account{User: *u, Profile: *profile}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", zap.Int64("user_id", acc.User.ID), zap.String("role", string(role)))
	return &acc, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetMyProfile returns the caller's account, creating a member profile
// when the user has none yet.
func (s *Service) GetMyProfile(ctx context.Context, p *identity.Principal) (*Account, error) {
	if err := s.guard(p, selfChain, false); err != nil {
		return nil, err
	}
	var acc Account
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		u, profile, err := ownAccount(ctx, tx, p.ID())
		if err != nil {
			return err
		}
		acc = Account{User: *u, Profile: *profile}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func ownAccount(ctx context.Context, tx repository.Repos, userID int64) (*models.User, *models.Profile, error) {
	u, err := tx.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		return nil, nil, apperr.NotFound("user")
	}
	profile, err := tx.Profiles().GetByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if profile == nil {
		profile = &models.Profile{UserID: userID, Role: models.RoleMember}
		if err := tx.Profiles().Create(ctx, profile); err != nil {
			return nil, nil, err
		}
	}
	return u, profile, nil
}

// UpdateMyProfile edits the caller's personal fields. The role is not
// self-service.
func (s *Service) UpdateMyProfile(ctx context.Context, p *identity.Principal, patch ProfilePatch) (*Account, error) {
	if err := s.guard(p, selfChain, true); err != nil {
		return nil, err
	}
	var acc Account
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		u, profile, err := ownAccount(ctx, tx, p.ID())
		if err != nil {
			return err
		}
		if patch.FirstName != nil || patch.LastName != nil {
			if patch.FirstName != nil {
				u.FirstName = strings.TrimSpace(*patch.FirstName)
			}
			if patch.LastName != nil {
				u.LastName = strings.TrimSpace(*patch.LastName)
			}
			if err := tx.Users().Update(ctx, u); err != nil {
				return err
			}
		}
		if patch.CompanyID != nil {
			company, err := tx.Companies().GetByID(ctx, *patch.CompanyID)
			if err != nil {
				return err
			}
			if company == nil {
				return apperr.Invalid("company_id", "unknown company")
			}
			profile.CompanyID = patch.CompanyID
		}
		setString(&profile.Phone, patch.Phone)
		setString(&profile.JobTitle, patch.JobTitle)
		setString(&profile.Department, patch.Department)
		setString(&profile.ContractType, patch.ContractType)
		if patch.HiredOn != nil {
			profile.HiredOn = patch.HiredOn
		}
		if err := tx.Profiles().Update(ctx, profile); err != nil {
			return err
		}
		acc = Account{User: *u, Profile: *profile}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// UpdateProfile lets an admin change another account's role, names and
// active flag. Setting a role also rewrites the user's pôle memberships to
// the matching pôle role.
func (s *Service) UpdateProfile(ctx context.Context, p *identity.Principal, userID int64, patch AdminProfilePatch) (*Account, error) {
	if err := s.guard(p, adminChain, true); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", *patch.Role))
	}
	if patch.IsActive != nil && !*patch.IsActive && userID == p.ID() {
		return nil, apperr.Invalid("is_active", "cannot deactivate your own account")
	}

	var acc Account
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		u, profile, err := ownAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if patch.FirstName != nil || patch.LastName != nil || patch.IsActive != nil {
			if patch.FirstName != nil {
				u.FirstName = strings.TrimSpace(*patch.FirstName)
			}
			if patch.LastName != nil {
				u.LastName = strings.TrimSpace(*patch.LastName)
			}
			if patch.IsActive != nil {
				u.IsActive = *patch.IsActive
			}
			if err := tx.Users().Update(ctx, u); err != nil {
				return err
			}
		}
		if patch.Role != nil {
			if profile.Role != *patch.Role {
				profile.Role = *patch.Role
				if err := tx.Profiles().Update(ctx, profile); err != nil {
					return err
				}
			}
			if err := tx.Poles().SetMemberRoles(ctx, userID, poleRoleFor(profile.Role)); err != nil {
				return err
			}
		}
		acc = Account{User: *u, Profile: *profile}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated by admin",
		zap.Int64("user_id", userID),
		zap.Int64("admin_id", p.ID()),
		zap.String("role", string(acc.Profile.Role)),
		zap.Bool("active", acc.User.IsActive),
	)
	return &acc, nil
}

func (s *Service) ListProfiles(ctx context.Context, p *identity.Principal) ([]models.Profile, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Profiles().List(ctx)
}

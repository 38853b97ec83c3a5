package service

import (
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func (s *serviceSuite) TestRegisterAndAuthenticate() {
	acc, err := s.svc.Register(s.ctx, RegisterInput{
		Email: " Nadia@Union.org ", Password: "correct-horse", FirstName: "Nadia",
	})
	s.Require().NoError(err)
	s.Equal("nadia@union.org", acc.User.Email)
	s.Equal(models.RoleMember, acc.Profile.Role)
	s.NotEqual("correct-horse", acc.User.PasswordHash)

	u, err := s.svc.Authenticate(s.ctx, "NADIA@union.org", "correct-horse")
	s.Require().NoError(err)
	s.Equal(acc.User.ID, u.ID)

	_, err = s.svc.Authenticate(s.ctx, "nadia@union.org", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.svc.Authenticate(s.ctx, "nobody@union.org", "correct-horse")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.svc.Register(s.ctx, RegisterInput{Email: "nadia@union.org", Password: "another-one"})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "email")
}

func (s *serviceSuite) TestRegisterValidation() {
	_, err := s.svc.Register(s.ctx, RegisterInput{Email: "not-an-email", Password: "short"})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("invalid email address", ve.Fields["email"])
	s.Equal("must be at least 8 characters", ve.Fields["password"])

	_, err = s.svc.CreateUser(s.ctx, s.as(s.adminID), CreateUserInput{RegisterInput: RegisterInput{Email: "  "}})
	s.Require().ErrorAs(err, &ve)
	s.Equal("required", ve.Fields["email"])
	s.Equal("required", ve.Fields["password"])
}

func (s *serviceSuite) TestCreateUserIsAdminOnly() {
	in := CreateUserInput{
		RegisterInput: RegisterInput{Email: "chef@union.org", Password: "long-enough"},
		Role:          models.RolePoleManager,
	}
	_, err := s.svc.CreateUser(s.ctx, s.as(s.managerID), in)
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Equal(1, s.recorder.denials["admin_only"])

	acc, err := s.svc.CreateUser(s.ctx, s.as(s.adminID), in)
	s.Require().NoError(err)
	s.Equal(models.RolePoleManager, acc.Profile.Role)
}

func (s *serviceSuite) TestMyProfileIsCreatedOnDemand() {
	u := &models.User{Email: "late@union.org", IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, u))

	acc, err := s.svc.GetMyProfile(s.ctx, s.as(u.ID))
	s.Require().NoError(err)
	s.Equal(models.RoleMember, acc.Profile.Role)

	updated, err := s.svc.UpdateMyProfile(s.ctx, s.as(u.ID), ProfilePatch{
		FirstName: ptr("Karim"), JobTitle: ptr(" Opérateur "), CompanyID: &s.companyC.ID,
	})
	s.Require().NoError(err)
	s.Equal("Karim", updated.User.FirstName)
	s.Equal("Opérateur", updated.Profile.JobTitle)
	s.Equal(s.companyC.ID, *updated.Profile.CompanyID)
	s.Equal(acc.Profile.ID, updated.Profile.ID)

	_, err = s.svc.UpdateMyProfile(s.ctx, s.as(u.ID), ProfilePatch{CompanyID: ptr(int64(999))})
	s.True(apperr.IsValidation(err))
}

func (s *serviceSuite) TestMarkNotificationRead() {
	s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	ns, err := s.svc.ListNotifications(s.ctx, s.as(s.workerID))
	s.Require().NoError(err)
	s.Require().Len(ns, 1)

	_, err = s.svc.MarkNotificationRead(s.ctx, s.as(s.colleagueID), ns[0].ID)
	s.True(apperr.IsNotFound(err))

	n, err := s.svc.MarkNotificationRead(s.ctx, s.as(s.workerID), ns[0].ID)
	s.Require().NoError(err)
	s.True(n.Read)

	all, err := s.svc.ListNotifications(s.ctx, s.as(s.adminID))
	s.Require().NoError(err)
	s.Len(all, 1)
	s.True(all[0].Read)
}

func (s *serviceSuite) TestAdminUpdatesProfile() {
	admin := s.as(s.adminID)
	_, err := s.svc.AddPoleMember(s.ctx, admin, s.poleA.ID, MemberInput{UserID: s.workerID})
	s.Require().NoError(err)

	_, err = s.svc.UpdateProfile(s.ctx, s.as(s.managerID), s.workerID, AdminProfilePatch{Role: ptr(models.RolePoleManager)})
	s.ErrorIs(err, apperr.ErrForbidden)

	acc, err := s.svc.UpdateProfile(s.ctx, admin, s.workerID, AdminProfilePatch{
		Role:      ptr(models.RolePoleManager),
		FirstName: ptr(" Ana "),
	})
	s.Require().NoError(err)
	s.Equal(models.RolePoleManager, acc.Profile.Role)
	s.Equal("Ana", acc.User.FirstName)

	m, err := s.store.Poles().GetMember(s.ctx, s.poleA.ID, s.workerID)
	s.Require().NoError(err)
	s.Equal(models.PoleRoleHead, m.Role)
	s.Equal(models.RolePoleManager, s.as(s.workerID).Profile.Role)

	acc, err = s.svc.UpdateProfile(s.ctx, admin, s.workerID, AdminProfilePatch{Role: ptr(models.RoleDelegate), IsActive: ptr(false)})
	s.Require().NoError(err)
	s.False(acc.User.IsActive)
	m, err = s.store.Poles().GetMember(s.ctx, s.poleA.ID, s.workerID)
	s.Require().NoError(err)
	s.Equal(models.PoleRoleAssistant, m.Role)

	_, err = s.svc.UpdateProfile(s.ctx, admin, s.adminID, AdminProfilePatch{IsActive: ptr(false)})
	s.True(apperr.IsValidation(err))
	_, err = s.svc.UpdateProfile(s.ctx, admin, s.workerID, AdminProfilePatch{Role: ptr(models.Role("superuser"))})
	s.True(apperr.IsValidation(err))
	_, err = s.svc.UpdateProfile(s.ctx, admin, 999, AdminProfilePatch{IsActive: ptr(true)})
	s.True(apperr.IsNotFound(err))
}

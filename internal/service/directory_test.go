package service

import (
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func (s *serviceSuite) TestCompaniesReadOpenWriteAdmin() {
	_, err := s.svc.CreateCompany(s.ctx, s.as(s.managerID), CompanyInput{Name: "Initech", Code: "INIT"})
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Equal(1, s.recorder.denials["read_only_unless_admin"])

	c, err := s.svc.CreateCompany(s.ctx, s.as(s.adminID), CompanyInput{Name: "Initech", Code: "INIT"})
	s.Require().NoError(err)

	_, err = s.svc.CreateCompany(s.ctx, s.as(s.adminID), CompanyInput{Name: "Other", Code: "INIT"})
	s.True(apperr.IsConflict(err))

	listed, err := s.svc.ListCompanies(s.ctx)
	s.Require().NoError(err)
	s.Len(listed, 3)

	updated, err := s.svc.UpdateCompany(s.ctx, s.as(s.adminID), c.ID, CompanyInput{Name: "Initech SA", Code: "INIT", Sector: "IT"})
	s.Require().NoError(err)
	s.Equal("Initech SA", updated.Name)

	_, err = s.svc.GetCompany(s.ctx, 999)
	s.True(apperr.IsNotFound(err))
}

func (s *serviceSuite) TestPolesAndMembers() {
	_, err := s.svc.CreatePole(s.ctx, s.as(s.workerID), PoleInput{Name: "Juridique"})
	s.ErrorIs(err, apperr.ErrForbidden)

	pole, err := s.svc.CreatePole(s.ctx, s.as(s.managerID), PoleInput{
		Name: "Juridique", ProblemTypes: []string{"legal_compliance"},
	})
	s.Require().NoError(err)
	s.Equal(s.managerID, pole.HeadUserID)

	_, err = s.svc.CreatePole(s.ctx, s.as(s.adminID), PoleInput{Name: "x", ProblemTypes: []string{"karaoke"}})
	s.True(apperr.IsValidation(err))

	manager := s.as(s.managerID)
	m, err := s.svc.AddPoleMember(s.ctx, manager, pole.ID, MemberInput{UserID: s.workerID})
	s.Require().NoError(err)
	s.Equal(models.PoleRoleMember, m.Role)

	_, err = s.svc.AddPoleMember(s.ctx, manager, pole.ID, MemberInput{UserID: s.workerID, Role: models.PoleRoleAssistant})
	s.True(apperr.IsConflict(err))

	_, err = s.svc.AddPoleMember(s.ctx, manager, s.poleB.ID, MemberInput{UserID: s.colleagueID})
	s.ErrorIs(err, apperr.ErrForbidden)

	members, err := s.svc.ListPoleMembers(s.ctx, s.as(s.workerID), pole.ID)
	s.Require().NoError(err)
	s.Len(members, 1)

	p := s.as(s.workerID)
	s.True(p.InPole(pole.ID))
}

func (s *serviceSuite) TestDelegateMandatePromotesProfile() {
	admin := s.as(s.adminID)
	m, err := s.svc.CreateDelegate(s.ctx, admin, DelegateInput{UserID: s.workerID, CompanyID: s.companyD.ID})
	s.Require().NoError(err)
	s.True(m.Active)

	profile, err := s.store.Profiles().GetByUser(s.ctx, s.workerID)
	s.Require().NoError(err)
	s.Equal(models.RoleDelegate, profile.Role)

	_, err = s.svc.CreateDelegate(s.ctx, admin, DelegateInput{UserID: s.workerID, CompanyID: s.companyD.ID})
	s.True(apperr.IsConflict(err))

	off, err := s.svc.UpdateDelegate(s.ctx, admin, m.ID, DelegatePatch{Active: ptr(false)})
	s.Require().NoError(err)
	s.False(off.Active)

	// Without an active mandate the delegate falls back to ownership scope.
	s.fileRequete(s.adminID, s.colleagueID, s.poleB.ID, s.companyD.ID, nil)
	own := s.fileRequete(s.adminID, s.workerID, s.poleB.ID, s.companyC.ID, nil)
	visible, err := s.svc.ListRequetes(s.ctx, s.as(s.workerID))
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(own.ID, visible[0].ID)

	_, err = s.svc.CreateDelegate(s.ctx, s.as(s.managerID), DelegateInput{UserID: s.colleagueID, CompanyID: s.companyC.ID})
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *serviceSuite) TestUpdatePoleMemberSyncsProfileRole() {
	manager := s.as(s.managerID)
	_, err := s.svc.AddPoleMember(s.ctx, manager, s.poleA.ID, MemberInput{UserID: s.colleagueID})
	s.Require().NoError(err)

	profileRole := func(userID int64) models.Role {
		p, err := s.store.Profiles().GetByUser(s.ctx, userID)
		s.Require().NoError(err)
		return p.Role
	}

	m, err := s.svc.UpdatePoleMember(s.ctx, manager, s.poleA.ID, s.colleagueID, MemberPatch{Role: models.PoleRoleHead})
	s.Require().NoError(err)
	s.Equal(models.PoleRoleHead, m.Role)
	s.Equal(models.RolePoleManager, profileRole(s.colleagueID))

	_, err = s.svc.UpdatePoleMember(s.ctx, manager, s.poleA.ID, s.colleagueID, MemberPatch{Role: models.PoleRoleAssistant})
	s.Require().NoError(err)
	s.Equal(models.RolePoleManager, profileRole(s.colleagueID), "assistant keeps the profile role")

	_, err = s.svc.UpdatePoleMember(s.ctx, manager, s.poleA.ID, s.colleagueID, MemberPatch{Role: models.PoleRoleMember})
	s.Require().NoError(err)
	s.Equal(models.RoleMember, profileRole(s.colleagueID))

	admin := s.as(s.adminID)
	_, err = s.svc.AddPoleMember(s.ctx, admin, s.poleA.ID, MemberInput{UserID: s.adminID})
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, profileRole(s.adminID), "admin profiles are never rewritten")

	_, err = s.svc.UpdatePoleMember(s.ctx, manager, s.poleB.ID, s.colleagueID, MemberPatch{Role: models.PoleRoleHead})
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.UpdatePoleMember(s.ctx, s.as(s.workerID), s.poleA.ID, s.colleagueID, MemberPatch{Role: models.PoleRoleHead})
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.UpdatePoleMember(s.ctx, manager, s.poleA.ID, s.workerID, MemberPatch{Role: models.PoleRoleHead})
	s.True(apperr.IsNotFound(err))
	_, err = s.svc.UpdatePoleMember(s.ctx, manager, s.poleA.ID, s.colleagueID, MemberPatch{Role: "boss"})
	s.True(apperr.IsValidation(err))
}

package service

import (
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func (s *serviceSuite) TestCreateRequeteNumbersAuditsAndNotifies() {
	r, err := s.svc.CreateRequete(s.ctx, s.as(s.workerID), CreateRequeteInput{
		PoleID:      s.poleA.ID,
		CompanyID:   s.companyC.ID,
		ProblemType: "health_safety_wellbeing",
		Title:       "  Équipement de sécurité manquant ",
	})
	s.Require().NoError(err)

	s.Equal("REQ-2026-00001", r.ReferenceNumber)
	s.Equal(s.workerID, r.WorkerID)
	s.Equal(models.RequeteNew, r.Status)
	s.Equal(models.PriorityMedium, r.Priority)
	s.Equal("Équipement de sécurité manquant", r.Title)

	entries := s.history(models.KindRequete, r.ID)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionCreation, entries[0].Action)
	s.Equal("Création de la requête.", *entries[0].Comment)

	ns := s.notificationsFor(s.workerID)
	s.Require().Len(ns, 1)
	s.Equal("Requête créée", ns[0].Title)
	s.Equal("Votre requête REQ-2026-00001 a été créée.", ns[0].Message)
	s.Equal(models.NotificationTicketUpdate, ns[0].Type)
	s.Equal(r.ID, *ns[0].RequeteID)

	s.Len(s.dispatcher.sent, 1)
	s.Equal(1, s.recorder.numbers["REQ"])

	second := s.fileRequete(s.adminID, s.colleagueID, s.poleA.ID, s.companyC.ID, nil)
	s.Equal("REQ-2026-00002", second.ReferenceNumber)
}

func (s *serviceSuite) TestCreateRequeteValidation() {
	_, err := s.svc.CreateRequete(s.ctx, s.as(s.workerID), CreateRequeteInput{ProblemType: "astrology"})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "pole_id")
	s.Contains(ve.Fields, "company_id")
	s.Contains(ve.Fields, "title")
	s.Contains(ve.Fields, "problem_type")

	_, err = s.svc.CreateRequete(s.ctx, s.as(s.workerID), CreateRequeteInput{
		PoleID: 999, CompanyID: s.companyC.ID, ProblemType: "other", Title: "x",
	})
	s.True(apperr.IsValidation(err))
}

func (s *serviceSuite) TestFailedCreationLeavesNoTrace() {
	_, err := s.svc.CreateRequete(s.ctx, s.as(s.workerID), CreateRequeteInput{
		PoleID: s.poleA.ID, CompanyID: 999, ProblemType: "other", Title: "x",
	})
	s.Require().True(apperr.IsValidation(err))
	s.Empty(s.notificationsFor(s.workerID))
	s.Empty(s.dispatcher.sent)

	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	s.Equal("REQ-2026-00001", r.ReferenceNumber)
}

func (s *serviceSuite) TestMemberFilesOnlyForThemselves() {
	other := s.colleagueID
	_, err := s.svc.CreateRequete(s.ctx, s.as(s.workerID), CreateRequeteInput{
		WorkerID: &other, PoleID: s.poleA.ID, CompanyID: s.companyC.ID, ProblemType: "other", Title: "x",
	})
	s.True(apperr.IsValidation(err))
}

func (s *serviceSuite) TestDelegateMustRepresentCompany() {
	admin := s.as(s.adminID)
	in := CreateRequeteInput{
		WorkerID:    &s.workerID,
		PoleID:      s.poleA.ID,
		CompanyID:   s.companyD.ID,
		DelegateID:  &s.mandate.ID,
		ProblemType: "other",
		Title:       "Licenciement",
	}
	_, err := s.svc.CreateRequete(s.ctx, admin, in)
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "delegate_id")

	in.CompanyID = s.companyC.ID
	r, err := s.svc.CreateRequete(s.ctx, admin, in)
	s.Require().NoError(err)
	s.Equal(s.delegateID, *r.DelegateUserID)
}

func (s *serviceSuite) TestPrimaryDossierMustSharePole() {
	admin := s.as(s.adminID)
	d, err := s.svc.CreateDossier(s.ctx, admin, CreateDossierInput{PoleID: s.poleB.ID, Title: "Formations"})
	s.Require().NoError(err)

	_, err = s.svc.CreateRequete(s.ctx, admin, CreateRequeteInput{
		WorkerID: &s.workerID, PoleID: s.poleA.ID, CompanyID: s.companyC.ID,
		DossierID: &d.ID, ProblemType: "other", Title: "x",
	})
	s.True(apperr.IsValidation(err))
}

func (s *serviceSuite) TestStatusChangeRecordsOnceAndNotifies() {
	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)

	updated, err := s.svc.ChangeRequeteStatus(s.ctx, manager, r.ID, "processing", "prise en charge")
	s.Require().NoError(err)
	s.Equal(models.RequeteProcessing, updated.Status)

	entries := s.history(models.KindRequete, r.ID)
	s.Require().Len(entries, 2)
	last := entries[1]
	s.Equal(models.ActionStatusChange, last.Action)
	s.Equal("status", *last.Field)
	s.Equal("new", *last.OldValue)
	s.Equal("processing", *last.NewValue)
	s.Equal("prise en charge", *last.Comment)
	s.Equal(s.managerID, last.ActorID)

	ns := s.notificationsFor(s.workerID)
	s.Require().Len(ns, 2)
	s.Equal("Mise à jour de requête", ns[0].Title)
	s.Equal("Statut mis à jour: En traitement", ns[0].Message)
	s.Equal(1, s.recorder.transitions["requete:processing"])

	_, err = s.svc.ChangeRequeteStatus(s.ctx, manager, r.ID, "processing", "")
	s.Require().NoError(err)
	s.Len(s.history(models.KindRequete, r.ID), 2)
	s.Len(s.notificationsFor(s.workerID), 2)
}

func (s *serviceSuite) TestStatusValidation() {
	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)

	_, err := s.svc.ChangeRequeteStatus(s.ctx, manager, r.ID, "archived", "")
	s.True(apperr.IsValidation(err))

	_, err = s.svc.ChangeRequeteStatus(s.ctx, manager, r.ID, "closed", "")
	s.Require().NoError(err)
	_, err = s.svc.ChangeRequeteStatus(s.ctx, manager, r.ID, "processing", "")
	s.True(apperr.IsValidation(err))

	got, err := s.svc.GetRequete(s.ctx, manager, r.ID)
	s.Require().NoError(err)
	s.Equal(models.RequeteClosed, got.Status)
}

func (s *serviceSuite) TestFieldEditsAreNormalized() {
	r := s.fileRequete(s.adminID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	admin := s.as(s.adminID)

	_, err := s.svc.UpdateRequete(s.ctx, admin, r.ID, RequetePatch{Title: ptr("Nouveau titre"), Priority: ptr(models.PriorityHigh)})
	s.Require().NoError(err)
	entries := s.history(models.KindRequete, r.ID)
	s.Require().Len(entries, 2)
	s.Equal(models.ActionModification, entries[1].Action)
	s.Equal("title,priority", *entries[1].Field)
	s.Nil(entries[1].OldValue)

	_, err = s.svc.UpdateRequete(s.ctx, admin, r.ID, RequetePatch{DelegateID: &s.mandate.ID})
	s.Require().NoError(err)
	entries = s.history(models.KindRequete, r.ID)
	s.Require().Len(entries, 3)
	s.Equal(models.ActionAssignment, entries[2].Action)

	_, err = s.svc.UpdateRequete(s.ctx, admin, r.ID, RequetePatch{Title: ptr("Nouveau titre")})
	s.Require().NoError(err)
	s.Len(s.history(models.KindRequete, r.ID), 3)

	// Only creation notified the worker: field edits do not.
	s.Len(s.notificationsFor(s.workerID), 1)
}

func (s *serviceSuite) TestStatusAndAssignmentInOnePatchRecordBoth() {
	r := s.fileRequete(s.adminID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	admin := s.as(s.adminID)

	_, err := s.svc.UpdateRequete(s.ctx, admin, r.ID, RequetePatch{
		Status:     ptr("processing"),
		DelegateID: &s.mandate.ID,
		Title:      ptr("Heures impayées, relance"),
		Comment:    "confié au délégué",
	})
	s.Require().NoError(err)

	entries := s.history(models.KindRequete, r.ID)
	s.Require().Len(entries, 3)
	s.Equal(models.ActionStatusChange, entries[1].Action)
	s.Equal("processing", *entries[1].NewValue)
	s.Equal("confié au délégué", *entries[1].Comment)
	s.Equal(models.ActionAssignment, entries[2].Action)
	s.Equal("title,delegate_id", *entries[2].Field)
	s.Nil(entries[2].Comment)
}

func (s *serviceSuite) TestRequeteListingScopes() {
	own := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyD.ID, nil)
	colleagues := s.fileRequete(s.colleagueID, s.colleagueID, s.poleA.ID, s.companyD.ID, nil)
	inC := s.fileRequete(s.adminID, s.colleagueID, s.poleB.ID, s.companyC.ID, nil)

	ids := func(rs []models.Requete) []int64 {
		out := make([]int64, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	mine, err := s.svc.ListRequetes(s.ctx, s.as(s.workerID))
	s.Require().NoError(err)
	s.Equal([]int64{own.ID}, ids(mine))

	represented, err := s.svc.ListRequetes(s.ctx, s.as(s.delegateID))
	s.Require().NoError(err)
	s.Equal([]int64{inC.ID}, ids(represented))

	poleA, err := s.svc.ListRequetes(s.ctx, s.as(s.managerID))
	s.Require().NoError(err)
	s.ElementsMatch([]int64{own.ID, colleagues.ID}, ids(poleA))

	all, err := s.svc.ListRequetes(s.ctx, s.as(s.adminID))
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *serviceSuite) TestOutOfScopeIsNotFoundInScopeDeniedIsForbidden() {
	colleagues := s.fileRequete(s.colleagueID, s.colleagueID, s.poleA.ID, s.companyC.ID, nil)

	_, err := s.svc.GetRequete(s.ctx, s.as(s.workerID), colleagues.ID)
	s.True(apperr.IsNotFound(err))

	// A member of pôle A sees the row in listings but may not open it.
	s.Require().NoError(s.store.Poles().AddMember(s.ctx, &models.PoleMembership{
		PoleID: s.poleA.ID, UserID: s.workerID, Role: models.PoleRoleMember,
	}))
	_, err = s.svc.GetRequete(s.ctx, s.as(s.workerID), colleagues.ID)
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Equal(1, s.recorder.denials["object:requete"])
}

func (s *serviceSuite) TestNoRoleIsDenied() {
	u := &models.User{Email: "norole@union.org", IsActive: true}
	s.Require().NoError(s.store.Users().Create(s.ctx, u))

	_, err := s.svc.ListRequetes(s.ctx, s.as(u.ID))
	s.ErrorIs(err, apperr.ErrForbidden)
	s.Equal(1, s.recorder.denials["has_role"])
}

func (s *serviceSuite) TestAttachmentsAndComments() {
	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)

	_, err := s.svc.AddAttachment(s.ctx, manager, r.ID, AttachmentInput{})
	s.True(apperr.IsValidation(err))

	a, err := s.svc.AddAttachment(s.ctx, manager, r.ID, AttachmentInput{FileKey: "uploads/contrat.pdf"})
	s.Require().NoError(err)
	s.Equal(models.DocumentAutre, a.DocumentType)
	s.Equal(s.managerID, a.UploadedBy)

	listed, err := s.svc.ListRequeteAttachments(s.ctx, s.as(s.workerID), r.ID)
	s.Require().NoError(err)
	s.Len(listed, 1)
	got, err := s.svc.GetAttachment(s.ctx, s.as(s.workerID), a.ID)
	s.Require().NoError(err)
	s.Equal(a.FileKey, got.FileKey)

	_, err = s.svc.AddComment(s.ctx, manager, r.ID, "Pouvez-vous envoyer vos fiches de paie ?")
	s.Require().NoError(err)
	_, err = s.svc.AddComment(s.ctx, s.as(s.workerID), r.ID, "Envoyées.")
	s.Require().NoError(err)

	entries, err := s.svc.RequeteHistory(s.ctx, s.as(s.workerID), r.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(models.ActionAttachmentAdded, entries[1].Action)
	s.Equal(models.ActionComment, entries[2].Action)

	ns := s.notificationsFor(s.workerID)
	s.Require().Len(ns, 2)
	s.Equal(models.NotificationNewMessage, ns[0].Type)
}

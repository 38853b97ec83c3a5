package service

import (
	"time"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func (s *serviceSuite) TestCreateDossierLinksSamePoleOnly() {
	inA := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	inB := s.fileRequete(s.adminID, s.colleagueID, s.poleB.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)

	_, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{
		PoleID: s.poleA.ID, Title: "Heures sup", RequeteIDs: []int64{inA.ID, inB.ID},
	})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "requete_ids")

	d, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{
		PoleID: s.poleA.ID, Title: "Heures sup", RequeteIDs: []int64{inA.ID},
	})
	s.Require().NoError(err)
	s.Equal("DOS-2026-00001", d.DossierNumber)
	s.Equal(models.DossierOpen, d.Status)
	s.Equal(s.managerID, d.ResponsibleID)
	s.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), d.OpenedOn)
	s.Equal(1, s.recorder.numbers["DOS"])

	entries := s.history(models.KindDossier, d.ID)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionCreation, entries[0].Action)
	s.Equal("Création du dossier.", *entries[0].Comment)

	// Creating a dossier notifies nobody.
	s.Len(s.notificationsFor(s.workerID), 1)

	_, err = s.svc.UpdateDossier(s.ctx, manager, d.ID, DossierPatch{RequeteIDs: &[]int64{inA.ID, inB.ID}})
	s.True(apperr.IsValidation(err))
}

func (s *serviceSuite) TestManagerCannotCreateDossierInOtherPole() {
	_, err := s.svc.CreateDossier(s.ctx, s.as(s.managerID), CreateDossierInput{PoleID: s.poleB.ID, Title: "x"})
	s.ErrorIs(err, apperr.ErrForbidden)
}

func (s *serviceSuite) TestMayClose() {
	r1 := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	r2 := s.fileRequete(s.colleagueID, s.colleagueID, s.poleA.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)

	empty, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{PoleID: s.poleA.ID, Title: "Vide"})
	s.Require().NoError(err)
	detail, err := s.svc.GetDossier(s.ctx, manager, empty.ID)
	s.Require().NoError(err)
	s.False(detail.MayClose)
	s.Empty(detail.Requetes)

	d, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{
		PoleID: s.poleA.ID, Title: "Atelier 3", RequeteIDs: []int64{r1.ID, r2.ID},
	})
	s.Require().NoError(err)

	_, err = s.svc.ChangeRequeteStatus(s.ctx, manager, r1.ID, "resolved", "")
	s.Require().NoError(err)
	detail, err = s.svc.GetDossier(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.False(detail.MayClose)

	_, err = s.svc.ChangeRequeteStatus(s.ctx, manager, r2.ID, "closed", "")
	s.Require().NoError(err)
	detail, err = s.svc.GetDossier(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.True(detail.MayClose)
	s.Len(detail.Requetes, 2)
}

func (s *serviceSuite) TestDossierVisibleThroughLinkedRequetes() {
	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	d, err := s.svc.CreateDossier(s.ctx, s.as(s.managerID), CreateDossierInput{
		PoleID: s.poleA.ID, Title: "Atelier 3", RequeteIDs: []int64{r.ID},
	})
	s.Require().NoError(err)

	_, err = s.svc.GetDossier(s.ctx, s.as(s.workerID), d.ID)
	s.NoError(err)
	_, err = s.svc.GetDossier(s.ctx, s.as(s.colleagueID), d.ID)
	s.True(apperr.IsNotFound(err))

	listed, err := s.svc.ListDossiers(s.ctx, s.as(s.delegateID))
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *serviceSuite) TestDossierStatusLifecycle() {
	manager := s.as(s.managerID)
	d, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{PoleID: s.poleA.ID, Title: "Atelier 3"})
	s.Require().NoError(err)

	_, err = s.svc.ChangeDossierStatus(s.ctx, manager, d.ID, "awaiting_meeting", "")
	s.True(apperr.IsValidation(err))

	transmitted, err := s.svc.TransmitDossier(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.Equal(models.DossierTransmittedToBureau, transmitted.Status)

	_, err = s.svc.TransmitDossier(s.ctx, manager, d.ID)
	s.Require().NoError(err)

	closed, err := s.svc.ChangeDossierStatus(s.ctx, manager, d.ID, "closed", "fin")
	s.Require().NoError(err)
	s.Require().NotNil(closed.ClosedOn)
	s.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), *closed.ClosedOn)

	reopened, err := s.svc.ChangeDossierStatus(s.ctx, manager, d.ID, "in_instruction", "")
	s.Require().NoError(err)
	s.Nil(reopened.ClosedOn)

	entries, err := s.svc.DossierHistory(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(models.ActionTransmission, entries[1].Action)
	s.Equal("open", *entries[1].OldValue)
	s.Equal("transmitted_to_bureau", *entries[1].NewValue)
	// Closing is an ordinary status change in the ledger.
	s.Equal(models.ActionStatusChange, entries[2].Action)
	s.Equal("status", *entries[2].Field)
	s.Equal("transmitted_to_bureau", *entries[2].OldValue)
	s.Equal("closed", *entries[2].NewValue)
	s.Equal("fin", *entries[2].Comment)
	s.Equal(models.ActionStatusChange, entries[3].Action)
	s.Equal(1, s.recorder.transitions["dossier:closed"])
}

func (s *serviceSuite) TestScheduleReunion() {
	manager := s.as(s.managerID)
	d, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{PoleID: s.poleA.ID, Title: "Atelier 3"})
	s.Require().NoError(err)
	at := time.Date(2026, time.March, 20, 14, 0, 0, 0, time.UTC)

	_, err = s.svc.ScheduleReunion(s.ctx, manager, d.ID, ReunionInput{
		Type: models.ReunionPhone, ScheduledAt: at, Location: ptr("Salle B"), Agenda: "Point",
	})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "location")

	phone, err := s.svc.ScheduleReunion(s.ctx, manager, d.ID, ReunionInput{
		Type: models.ReunionPhone, ScheduledAt: at, Location: ptr(""), Agenda: "Point",
	})
	s.Require().NoError(err)
	s.Nil(phone.Location)
	s.Equal(models.ReunionPlanned, phone.Status)

	inPerson, err := s.svc.ScheduleReunion(s.ctx, manager, d.ID, ReunionInput{
		Type: models.ReunionInPerson, ScheduledAt: at, Location: ptr("Salle B"), Agenda: "Point",
	})
	s.Require().NoError(err)
	s.Equal("Salle B", *inPerson.Location)

	got, err := s.svc.GetDossier(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.Equal(models.DossierOpen, got.Status)

	entries := s.history(models.KindDossier, d.ID)
	s.Require().Len(entries, 3)
	s.Equal(models.ActionMeetingPlanned, entries[1].Action)
	s.Equal("Réunion planifiée le 20/03/2026 14:00.", *entries[1].Comment)

	_, err = s.svc.UpdateReunion(s.ctx, manager, inPerson.ID, ReunionPatch{Type: ptr(models.ReunionPhone)})
	s.True(apperr.IsValidation(err))

	done, err := s.svc.UpdateReunion(s.ctx, manager, inPerson.ID, ReunionPatch{
		Status: ptr(models.ReunionDone), Minutes: ptr("Accord trouvé"),
	})
	s.Require().NoError(err)
	s.Equal(models.ReunionDone, done.Status)

	reunionEntries := s.history(models.KindReunion, inPerson.ID)
	s.Require().Len(reunionEntries, 1)
	s.Equal(models.ActionStatusChange, reunionEntries[0].Action)
	s.Equal("done", *reunionEntries[0].NewValue)

	listed, err := s.svc.ListReunions(s.ctx, manager)
	s.Require().NoError(err)
	s.Len(listed, 2)
	_, err = s.svc.GetReunion(s.ctx, s.as(s.workerID), phone.ID)
	s.True(apperr.IsNotFound(err))
}

func (s *serviceSuite) TestGenerateSynthesis() {
	r := s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	manager := s.as(s.managerID)
	d, err := s.svc.CreateDossier(s.ctx, manager, CreateDossierInput{
		PoleID: s.poleA.ID, Title: "Atelier 3", RequeteIDs: []int64{r.ID},
	})
	s.Require().NoError(err)

	out, err := s.svc.GenerateSynthesis(s.ctx, manager, d.ID)
	s.Require().NoError(err)
	s.Require().NotNil(out.Synthesis)
	s.Equal("Dossier DOS-2026-00001 - Atelier 3\n"+
		"Pôle: Conditions de travail\n"+
		"Statut: Ouvert\n"+
		"- REQ-2026-00001: Heures supplémentaires impayées", *out.Synthesis)

	entries := s.history(models.KindDossier, d.ID)
	s.Require().Len(entries, 2)
	s.Equal("synthesis", *entries[1].Field)
}

package service

import (
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/repository"
)

func (s *serviceSuite) TestDocumentFilingRules() {
	admin := s.as(s.adminID)
	manager := s.as(s.managerID)

	statutes, err := s.svc.CreateDocument(s.ctx, admin, DocumentInput{
		Name: "Statuts", Year: 2026, Category: "statuts", FileKey: "docs/statuts.pdf",
	})
	s.Require().NoError(err)
	s.Nil(statutes.PoleID)
	s.Equal(s.adminID, statutes.UploadedBy)

	report, err := s.svc.CreateDocument(s.ctx, manager, DocumentInput{
		Name: " Rapport annuel ", PoleID: &s.poleA.ID, Year: 2025, Category: "rapport", FileKey: "docs/rapport.pdf",
	})
	s.Require().NoError(err)
	s.Equal("Rapport annuel", report.Name)
	s.Equal(s.managerID, report.UploadedBy)
	s.Equal(1, report.Version)

	_, err = s.svc.CreateDocument(s.ctx, manager, DocumentInput{Name: "x", PoleID: &s.poleB.ID, Year: 2026, Category: "c", FileKey: "k"})
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.CreateDocument(s.ctx, manager, DocumentInput{Name: "x", Year: 2026, Category: "c", FileKey: "k"})
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.CreateDocument(s.ctx, s.as(s.workerID), DocumentInput{Name: "x", PoleID: &s.poleA.ID, Year: 2026, Category: "c", FileKey: "k"})
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.CreateDocument(s.ctx, admin, DocumentInput{Name: "  "})
	var ve *apperr.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("required", ve.Fields["name"])
	s.Equal("required", ve.Fields["year"])
	s.Equal("required", ve.Fields["category"])
	s.Equal("required", ve.Fields["file_key"])

	unknown := int64(999)
	_, err = s.svc.CreateDocument(s.ctx, admin, DocumentInput{Name: "x", PoleID: &unknown, Year: 2026, Category: "c", FileKey: "k"})
	s.Require().ErrorAs(err, &ve)
	s.Contains(ve.Fields, "pole_id")
}

func (s *serviceSuite) TestDocumentListingScopes() {
	admin := s.as(s.adminID)
	_, err := s.svc.CreateDocument(s.ctx, admin, DocumentInput{Name: "Statuts", Year: 2026, Category: "statuts", FileKey: "a"})
	s.Require().NoError(err)
	inA, err := s.svc.CreateDocument(s.ctx, admin, DocumentInput{Name: "Guide", PoleID: &s.poleA.ID, Year: 2025, Category: "guide", FileKey: "b"})
	s.Require().NoError(err)
	_, err = s.svc.CreateDocument(s.ctx, admin, DocumentInput{Name: "Catalogue", PoleID: &s.poleB.ID, Year: 2026, Category: "formation", FileKey: "c"})
	s.Require().NoError(err)

	visible := func(userID int64) int {
		docs, err := s.svc.ListDocuments(s.ctx, s.as(userID), repository.DocumentFilter{})
		s.Require().NoError(err)
		return len(docs)
	}
	s.Equal(3, visible(s.adminID))
	s.Equal(1, visible(s.managerID))
	s.Equal(0, visible(s.workerID), "no pôle means no documents, even for an owner")
	s.Equal(0, visible(s.delegateID), "no requête from the mandated company yet")

	s.fileRequete(s.workerID, s.workerID, s.poleA.ID, s.companyC.ID, nil)
	s.Equal(1, visible(s.delegateID))

	got, err := s.svc.GetDocument(s.ctx, s.as(s.delegateID), inA.ID)
	s.Require().NoError(err)
	s.Equal("Guide", got.Name)

	byYear, err := s.svc.ListDocuments(s.ctx, admin, repository.DocumentFilter{Year: 2026})
	s.Require().NoError(err)
	s.Len(byYear, 2)
	byCategory, err := s.svc.ListDocuments(s.ctx, admin, repository.DocumentFilter{Category: "guide"})
	s.Require().NoError(err)
	s.Len(byCategory, 1)
}

func (s *serviceSuite) TestUpdateDocumentBumpsVersionOnNewFile() {
	manager := s.as(s.managerID)
	d, err := s.svc.CreateDocument(s.ctx, manager, DocumentInput{Name: "PV", PoleID: &s.poleA.ID, Year: 2026, Category: "pv", FileKey: "v1"})
	s.Require().NoError(err)

	updated, err := s.svc.UpdateDocument(s.ctx, manager, d.ID, DocumentPatch{FileKey: ptr("v2"), Description: ptr("corrigé")})
	s.Require().NoError(err)
	s.Equal(2, updated.Version)
	s.Equal("corrigé", updated.Description)
	s.Equal(s.managerID, updated.UploadedBy)

	updated, err = s.svc.UpdateDocument(s.ctx, manager, d.ID, DocumentPatch{Name: ptr("PV AG")})
	s.Require().NoError(err)
	s.Equal(2, updated.Version)

	_, err = s.svc.UpdateDocument(s.ctx, manager, d.ID, DocumentPatch{Name: ptr(" ")})
	s.True(apperr.IsValidation(err))
	_, err = s.svc.UpdateDocument(s.ctx, manager, d.ID, DocumentPatch{PoleID: &s.poleB.ID})
	s.ErrorIs(err, apperr.ErrForbidden)
	_, err = s.svc.UpdateDocument(s.ctx, s.as(s.workerID), d.ID, DocumentPatch{Name: ptr("x")})
	s.True(apperr.IsNotFound(err))
}

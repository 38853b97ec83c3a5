package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func TestParseRejectsUnknownStatus(t *testing.T) {
	_, err := RequeteMachine.Parse("archived")
	assert.True(t, apperr.IsValidation(err))

	_, err = DossierMachine.Parse("")
	assert.True(t, apperr.IsValidation(err))

	s, err := DossierMachine.Parse("awaiting_meeting")
	require.NoError(t, err)
	assert.Equal(t, models.DossierAwaitingMeeting, s)
}

func TestRequeteTransitions(t *testing.T) {
	allowed := [][2]models.RequeteStatus{
		{models.RequeteNew, models.RequeteInfoNeeded},
		{models.RequeteNew, models.RequeteProcessing},
		{models.RequeteNew, models.RequeteResolved},
		{models.RequeteNew, models.RequeteClosed},
		{models.RequeteProcessing, models.RequeteHREscalated},
		{models.RequeteHRPending, models.RequeteResolved},
		{models.RequeteResolved, models.RequeteClosed},
		{models.RequeteResolved, models.RequeteProcessing},
		{models.RequeteClosed, models.RequeteClosed},
	}
	for _, tr := range allowed {
		assert.NoError(t, RequeteMachine.CheckTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	refused := [][2]models.RequeteStatus{
		{models.RequeteNew, models.RequeteHREscalated},
		{models.RequeteClosed, models.RequeteNew},
		{models.RequeteResolved, models.RequeteNew},
		{models.RequeteInfoNeeded, models.RequeteHRPending},
	}
	for _, tr := range refused {
		assert.Error(t, RequeteMachine.CheckTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestDossierTransitions(t *testing.T) {
	path := []models.DossierStatus{
		models.DossierOpen,
		models.DossierInInstruction,
		models.DossierAwaitingMeeting,
		models.DossierTransmittedToBureau,
		models.DossierClosed,
		models.DossierArchived,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, DossierMachine.CheckTransition(path[i], path[i+1]))
	}
	assert.Error(t, DossierMachine.CheckTransition(models.DossierOpen, models.DossierArchived))
	assert.Error(t, DossierMachine.CheckTransition(models.DossierArchived, models.DossierOpen))
}

func TestPlan(t *testing.T) {
	t.Run("unchanged status", func(t *testing.T) {
		c, err := RequeteMachine.Plan(models.RequeteNew, "new", false)
		require.NoError(t, err)
		assert.False(t, c.Changed)
	})

	t.Run("graph edge", func(t *testing.T) {
		c, err := RequeteMachine.Plan(models.RequeteNew, "processing", false)
		require.NoError(t, err)
		assert.Equal(t, Change[models.RequeteStatus]{From: models.RequeteNew, To: models.RequeteProcessing, Changed: true}, c)
	})

	t.Run("forced move skips the graph", func(t *testing.T) {
		_, err := DossierMachine.Plan(models.DossierOpen, "transmitted_to_bureau", false)
		assert.Error(t, err)

		c, err := DossierMachine.Plan(models.DossierOpen, "transmitted_to_bureau", true)
		require.NoError(t, err)
		assert.True(t, c.Changed)
	})

	t.Run("forced move still validates the value", func(t *testing.T) {
		_, err := DossierMachine.Plan(models.DossierOpen, "sent", true)
		assert.True(t, apperr.IsValidation(err))
	})
}

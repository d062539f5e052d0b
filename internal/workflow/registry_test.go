package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smd-edu/syllabus-api/internal/models"
)

func TestVisibleStatusesLecturer(t *testing.T) {
	require.Equal(t, []models.SyllabusStatus{
		models.StatusDraft,
		models.StatusPendingHOD,
		models.StatusRejected,
		models.StatusRevisionInProgress,
	}, VisibleStatuses("LECTURER"))
}

func TestVisibleStatusesAdminCoversAdministrativeSet(t *testing.T) {
	statuses := VisibleStatuses("admin")
	require.Len(t, statuses, 7)
	require.Contains(t, statuses, models.StatusPendingAdminRepublish)
	require.Contains(t, statuses, models.StatusArchived)
	require.NotContains(t, statuses, models.StatusDraft)
	require.NotContains(t, statuses, models.StatusPendingHOD)
}

func TestVisibleStatusesNormalizesRole(t *testing.T) {
	require.Equal(t, VisibleStatuses("HOD"), VisibleStatuses("  hod "))
}

func TestVisibleStatusesUnknownRoleIsEmpty(t *testing.T) {
	require.Empty(t, VisibleStatuses("STUDENT"))
	require.Empty(t, VisibleStatuses(""))
}

func TestCanView(t *testing.T) {
	require.True(t, CanView("HOD", models.StatusPendingHOD))
	require.True(t, CanView("HOD", models.StatusPendingHODRevision))
	require.False(t, CanView("HOD", models.StatusPublished))
	require.True(t, CanView("PRINCIPAL", models.StatusPendingPrincipal))
	require.False(t, CanView("PRINCIPAL", models.StatusPendingAA))
	require.True(t, CanView("AA", models.StatusPendingAA))
	require.False(t, CanView("LECTURER", models.StatusApproved))
	require.False(t, CanView("STUDENT", models.StatusPublished))
}

func TestDisplayNameKnownAndUnknown(t *testing.T) {
	require.Equal(t, "Bản nháp", DisplayName(models.StatusDraft))
	require.Equal(t, "Đã xuất bản", DisplayName(models.StatusPublished))
	require.Equal(t, "SOMETHING", DisplayName(models.SyllabusStatus("SOMETHING")))
}

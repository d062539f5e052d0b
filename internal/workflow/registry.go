// Package workflow owns the syllabus approval state machine: the status
// transition tables, the role visibility registry, and the revision-session
// state rules. Everything here is pure and safe for concurrent use; locking
// and persistence belong to the service and repository layers.
package workflow

import "github.com/smd-edu/syllabus-api/internal/models"

// DisplayName returns the localized label shown for a status. Labels follow
// the institution's Vietnamese terminology.
func DisplayName(status models.SyllabusStatus) string {
	switch status {
	case models.StatusDraft:
		return "Bản nháp"
	case models.StatusPendingHOD:
		return "Chờ Trưởng BM"
	case models.StatusPendingAA:
		return "Chờ Phòng ĐT"
	case models.StatusPendingPrincipal:
		return "Chờ Hiệu trưởng duyệt"
	case models.StatusApproved:
		return "Đã phê duyệt"
	case models.StatusPublished:
		return "Đã xuất bản"
	case models.StatusRejected:
		return "Bị từ chối"
	case models.StatusRevisionInProgress:
		return "Đang chỉnh sửa"
	case models.StatusPendingHODRevision:
		return "Chờ TBM duyệt lại"
	case models.StatusPendingAdminRepublish:
		return "Chờ xuất bản lại"
	case models.StatusInactive:
		return "Không hoạt động"
	case models.StatusArchived:
		return "Đã lưu trữ"
	default:
		return string(status)
	}
}

// VisibleStatuses returns the ordered set of statuses a role may see and act
// on. The role string is normalized before lookup; an unrecognized role gets
// an empty set rather than an error. This table is the authorization source
// of truth for the workflow: a role may only act on a syllabus whose current
// status appears in its set.
func VisibleStatuses(role string) []models.SyllabusStatus {
	switch models.NormalizeRole(role) {
	case models.RoleAdmin:
		return []models.SyllabusStatus{
			models.StatusApproved,
			models.StatusPublished,
			models.StatusRejected,
			models.StatusRevisionInProgress,
			models.StatusPendingAdminRepublish,
			models.StatusInactive,
			models.StatusArchived,
		}
	case models.RolePrincipal:
		return []models.SyllabusStatus{
			models.StatusPendingPrincipal,
			models.StatusApproved,
		}
	case models.RoleAA:
		return []models.SyllabusStatus{
			models.StatusPendingAA,
			models.StatusPendingPrincipal,
			models.StatusRejected,
		}
	case models.RoleHOD:
		return []models.SyllabusStatus{
			models.StatusPendingHOD,
			models.StatusPendingAA,
			models.StatusRejected,
			models.StatusPendingHODRevision,
			models.StatusPendingAdminRepublish,
		}
	case models.RoleLecturer:
		return []models.SyllabusStatus{
			models.StatusDraft,
			models.StatusPendingHOD,
			models.StatusRejected,
			models.StatusRevisionInProgress,
		}
	default:
		return nil
	}
}

// CanView reports whether the role's visible-status set contains the status.
func CanView(role string, status models.SyllabusStatus) bool {
	for _, s := range VisibleStatuses(role) {
		if s == status {
			return true
		}
	}
	return false
}

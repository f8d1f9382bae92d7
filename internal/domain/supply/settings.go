package supply

import (
	"slices"
	"time"
)

// AccessMode controls which employees see and act on a supply.
type AccessMode string

const (
	AccessHidden        AccessMode = "hidden"
	AccessAll           AccessMode = "all"
	AccessSelected      AccessMode = "selected"
	AccessSelectedSplit AccessMode = "selected_split"
)

// IsValid checks if the access mode is one of the known values
func (m AccessMode) IsValid() bool {
	switch m {
	case AccessHidden, AccessAll, AccessSelected, AccessSelectedSplit:
		return true
	}
	return false
}

// String returns the string representation
func (m AccessMode) String() string {
	return string(m)
}

// RequiresMembership reports whether actors must be listed as access users.
func (m AccessMode) RequiresMembership() bool {
	return m == AccessSelected || m == AccessSelectedSplit
}

// KeepsUsers reports whether switching to this mode keeps the access user list.
func (m AccessMode) KeepsUsers() bool {
	return m.RequiresMembership()
}

// KeepsAssignments reports whether switching to this mode keeps order assignments.
func (m AccessMode) KeepsAssignments() bool {
	return m == AccessSelectedSplit
}

// LabelStatus is the state of the label generation job of a supply.
type LabelStatus string

const (
	LabelsIdle    LabelStatus = "idle"
	LabelsLoading LabelStatus = "loading"
	LabelsReady   LabelStatus = "ready"
	LabelsError   LabelStatus = "error"
)

// Settings is the locally owned state of a supply.
type Settings struct {
	SupplyID         string
	SupplyName       string
	StoreID          string
	StoreName        string
	AccessMode       AccessMode
	LabelsStatus     LabelStatus
	LabelsFormat     string
	LabelsPrefix     string
	LabelsTotal      int
	LabelsLoaded     int
	LabelsError      string
	LabelsStartedAt  *time.Time
	LabelsFinishedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EffectiveLabelsTotal falls back to the order count before the first label job.
func (s Settings) EffectiveLabelsTotal(orderCount int) int {
	if s.LabelsTotal > 0 {
		return s.LabelsTotal
	}
	return orderCount
}

// Actor is the employee performing an operation.
type Actor struct {
	UserID int64
}

// CheckAccess applies the access mode of a supply to an actor.
// A nil or hidden supply is reported as unavailable. assignedUserID is the
// assignee of the order being acted on, if any.
func CheckAccess(settings *Settings, actor Actor, accessUsers []int64, assignedUserID *int64) error {
	if settings == nil || settings.AccessMode == AccessHidden || settings.AccessMode == "" {
		return ErrSupplyUnavailable
	}
	if settings.AccessMode.RequiresMembership() && !slices.Contains(accessUsers, actor.UserID) {
		return ErrAccessDenied
	}
	if settings.AccessMode == AccessSelectedSplit && assignedUserID != nil && *assignedUserID != actor.UserID {
		return ErrAccessDenied
	}
	return nil
}

package supply

import (
	"errors"
	"testing"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestAccessMode(t *testing.T) {
	tests := []struct {
		mode             AccessMode
		valid            bool
		membership       bool
		keepsAssignments bool
	}{
		{AccessHidden, true, false, false},
		{AccessAll, true, false, false},
		{AccessSelected, true, true, false},
		{AccessSelectedSplit, true, true, true},
		{AccessMode("public"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.mode.IsValid())
			assert.Equal(t, tt.membership, tt.mode.RequiresMembership())
			assert.Equal(t, tt.keepsAssignments, tt.mode.KeepsAssignments())
		})
	}
}

func TestCheckAccess(t *testing.T) {
	actor := Actor{UserID: 3}
	other := int64(4)
	mine := int64(3)

	tests := []struct {
		name     string
		settings *Settings
		users    []int64
		assigned *int64
		wantErr  error
	}{
		{"missing settings", nil, nil, nil, ErrSupplyUnavailable},
		{"hidden", &Settings{AccessMode: AccessHidden}, []int64{3}, nil, ErrSupplyUnavailable},
		{"all", &Settings{AccessMode: AccessAll}, nil, &other, nil},
		{"selected member", &Settings{AccessMode: AccessSelected}, []int64{1, 3}, nil, nil},
		{"selected outsider", &Settings{AccessMode: AccessSelected}, []int64{1}, nil, ErrAccessDenied},
		{"split own order", &Settings{AccessMode: AccessSelectedSplit}, []int64{3}, &mine, nil},
		{"split unassigned order", &Settings{AccessMode: AccessSelectedSplit}, []int64{3}, nil, nil},
		{"split foreign order", &Settings{AccessMode: AccessSelectedSplit}, []int64{3, 4}, &other, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAccess(tt.settings, actor, tt.users, tt.assigned)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}

	t.Run("unavailable is a not found kind", func(t *testing.T) {
		assert.True(t, errors.Is(CheckAccess(nil, actor, nil, nil), shared.ErrNotFound))
	})
}

func TestSettings_EffectiveLabelsTotal(t *testing.T) {
	assert.Equal(t, 12, Settings{}.EffectiveLabelsTotal(12))
	assert.Equal(t, 10, Settings{LabelsTotal: 10}.EffectiveLabelsTotal(12))
}

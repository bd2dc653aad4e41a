package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientRefValidate(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name    string
		ref     PatientRef
		wantErr bool
	}{
		{
			name: "valid registered ref",
			ref:  RegisteredRef(accountID),
		},
		{
			name: "valid walk-in ref",
			ref:  WalkInRef(WalkInPatient{DisplayName: "Juan dela Cruz", Age: 42}),
		},
		{
			name:    "registered without account id",
			ref:     PatientRef{Kind: PatientRefRegistered},
			wantErr: true,
		},
		{
			name: "registered carrying a snapshot",
			ref: PatientRef{
				Kind:      PatientRefRegistered,
				AccountID: &accountID,
				WalkIn:    &WalkInPatient{DisplayName: "x"},
			},
			wantErr: true,
		},
		{
			name:    "walk-in without snapshot",
			ref:     PatientRef{Kind: PatientRefWalkIn},
			wantErr: true,
		},
		{
			name:    "walk-in with empty name",
			ref:     PatientRef{Kind: PatientRefWalkIn, WalkIn: &WalkInPatient{}},
			wantErr: true,
		},
		{
			name: "walk-in carrying an account id",
			ref: PatientRef{
				Kind:      PatientRefWalkIn,
				AccountID: &accountID,
				WalkIn:    &WalkInPatient{DisplayName: "x"},
			},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			ref:     PatientRef{Kind: "guessed"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatientRefBelongsTo(t *testing.T) {
	accountID := uuid.New()

	assert.True(t, RegisteredRef(accountID).BelongsTo(accountID))
	assert.False(t, RegisteredRef(accountID).BelongsTo(uuid.New()))
	assert.False(t, WalkInRef(WalkInPatient{DisplayName: "x"}).BelongsTo(accountID))
}

func TestPatientRefRoundTrip(t *testing.T) {
	original := WalkInRef(WalkInPatient{
		DisplayName:   "Maria Santos",
		Age:           35,
		Sex:           "female",
		ContactNumber: "0917-000-0000",
	})

	value, err := original.Value()
	require.NoError(t, err)

	var decoded PatientRef
	require.NoError(t, decoded.Scan(value))

	assert.Equal(t, original, decoded)
	assert.Equal(t, "Maria Santos", decoded.DisplayLabel())
}

func TestPatientRefScanRejectsInvalid(t *testing.T) {
	var ref PatientRef
	assert.Error(t, ref.Scan([]byte(`{"kind":"registered"}`)))
	assert.Error(t, ref.Scan(42))
}

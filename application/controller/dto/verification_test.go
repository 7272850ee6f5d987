package dto

import (
	"strings"
	"testing"

	"veriface.io/infrastructure/validator"
)

func TestVerifyFaceDTOValidation(t *testing.T) {
	validImage := strings.Repeat("abcd", 30)
	longID := strings.Repeat("x", 101)

	tests := []struct {
		name    string
		payload VerifyFaceDTO
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: VerifyFaceDTO{UserID: "user-1", Image: validImage},
			wantErr: false,
		},
		{
			name:    "valid payload with data uri prefix",
			payload: VerifyFaceDTO{UserID: "user-1", Image: "data:image/jpeg;base64," + validImage},
			wantErr: false,
		},
		{
			name:    "valid payload with record id",
			payload: VerifyFaceDTO{UserID: "user-1", Image: validImage, RecordID: strPtr("rec-22")},
			wantErr: false,
		},
		{
			name:    "missing user id",
			payload: VerifyFaceDTO{Image: validImage},
			wantErr: true,
		},
		{
			name:    "missing image",
			payload: VerifyFaceDTO{UserID: "user-1"},
			wantErr: true,
		},
		{
			name:    "image too small",
			payload: VerifyFaceDTO{UserID: "user-1", Image: "abcd"},
			wantErr: true,
		},
		{
			name:    "image not base64",
			payload: VerifyFaceDTO{UserID: "user-1", Image: strings.Repeat("???!", 30)},
			wantErr: true,
		},
		{
			name:    "user id too long",
			payload: VerifyFaceDTO{UserID: longID, Image: validImage},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.payload)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestEnrollFaceDTOValidation(t *testing.T) {
	validImage := strings.Repeat("abcd", 30)

	tests := []struct {
		name    string
		payload EnrollFaceDTO
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: EnrollFaceDTO{UserID: "user-1", Image: validImage},
			wantErr: false,
		},
		{
			name:    "missing user id",
			payload: EnrollFaceDTO{Image: validImage},
			wantErr: true,
		},
		{
			name:    "missing image",
			payload: EnrollFaceDTO{UserID: "user-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validator.ValidatorInstance.ValidateStruct(tt.payload)
			if (errs != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

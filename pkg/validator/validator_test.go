package validator

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	v := New()
	if v == nil {
		t.Fatal("expected validator to be created")
	}
	if v.validate == nil {
		t.Fatal("expected internal validator to be initialized")
	}
}

func TestValidate_RequiredField(t *testing.T) {
	v := New()

	type TestStruct struct {
		Host string `validate:"required"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - host provided", input: TestStruct{Host: "example.armis.com"}, wantErr: false},
		{name: "invalid - host empty", input: TestStruct{Host: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArmisSeverity(t *testing.T) {
	v := New()

	type TestStruct struct {
		Severity string `validate:"armis_severity"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - empty", input: TestStruct{Severity: ""}, wantErr: false},
		{name: "valid - LOW", input: TestStruct{Severity: "LOW"}, wantErr: false},
		{name: "valid - MEDIUM", input: TestStruct{Severity: "MEDIUM"}, wantErr: false},
		{name: "valid - HIGH", input: TestStruct{Severity: "HIGH"}, wantErr: false},
		{name: "valid - CRITICAL", input: TestStruct{Severity: "CRITICAL"}, wantErr: false},
		{name: "invalid - lowercase", input: TestStruct{Severity: "low"}, wantErr: true},
		{name: "invalid - unknown", input: TestStruct{Severity: "SEVERE"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArmisStatus(t *testing.T) {
	v := New()

	type TestStruct struct {
		Status string `validate:"armis_status"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - empty", input: TestStruct{Status: ""}, wantErr: false},
		{name: "valid - OPEN", input: TestStruct{Status: "OPEN"}, wantErr: false},
		{name: "valid - IN_PROGRESS", input: TestStruct{Status: "IN_PROGRESS"}, wantErr: false},
		{name: "valid - RESOLVED", input: TestStruct{Status: "RESOLVED"}, wantErr: false},
		{name: "valid - SUPPRESSED", input: TestStruct{Status: "SUPPRESSED"}, wantErr: false},
		{name: "invalid - CLOSED", input: TestStruct{Status: "CLOSED"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ErrorMessages(t *testing.T) {
	v := New()

	type TestStruct struct {
		BatchSize int    `validate:"min=1"`
		DeviceMac string `validate:"omitempty,mac"`
	}

	err := v.Validate(TestStruct{BatchSize: 0, DeviceMac: "not-a-mac"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "batch_size" || verrs[0].Message != "must be at least 1" {
		t.Errorf("unexpected first error: %+v", verrs[0])
	}
	if verrs[1].Field != "device_mac" || verrs[1].Message != "must be a valid MAC address" {
		t.Errorf("unexpected second error: %+v", verrs[1])
	}
}

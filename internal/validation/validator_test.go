// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package validation

import (
	"strings"
	"testing"
)

type reviewInput struct {
	Rating int    `json:"rating" validate:"rating"`
	Text   string `json:"review_text" validate:"omitempty,max=20"`
	UserID string `json:"user_id" validate:"required,uuid"`
}

type similarInput struct {
	Identifier string `json:"identifier" validate:"notblank"`
	TopN       int    `json:"top_n" validate:"min=1,max=50"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	validUser := "0b6c1f3e-5b7a-4c55-9a0e-0d5d3b7c4a11"

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantMsg   string
	}{
		{name: "valid review", input: &reviewInput{Rating: 7, UserID: validUser}},
		{name: "rating too low", input: &reviewInput{Rating: 0, UserID: validUser}, wantField: "rating", wantMsg: "rating must be between 1 and 10"},
		{name: "rating too high", input: &reviewInput{Rating: 11, UserID: validUser}, wantField: "rating", wantMsg: "rating must be between 1 and 10"},
		{name: "text too long", input: &reviewInput{Rating: 5, Text: strings.Repeat("a", 21), UserID: validUser}, wantField: "review_text", wantMsg: "review_text must be at most 20 characters"},
		{name: "bad uuid", input: &reviewInput{Rating: 5, UserID: "nope"}, wantField: "user_id", wantMsg: "user_id must be a valid UUID"},
		{name: "valid similar", input: &similarInput{Identifier: "Alien", TopN: 10}},
		{name: "blank identifier", input: &similarInput{Identifier: "   ", TopN: 10}, wantField: "identifier", wantMsg: "identifier must not be blank"},
		{name: "top_n over max", input: &similarInput{Identifier: "Alien", TopN: 51}, wantField: "top_n", wantMsg: "top_n must be at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err) != 1 {
				t.Fatalf("ValidateStruct() = %d entries, want 1: %v", len(err), err)
			}
			if err[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", err[0].Field, tt.wantField)
			}
			if err[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestErrors_ToAPIError(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		apiErr := ValidateStruct(&similarInput{Identifier: "Alien", TopN: 0}).ToAPIError()
		if apiErr.Code != CodeValidationError {
			t.Errorf("Code = %q, want %q", apiErr.Code, CodeValidationError)
		}
		fields, ok := apiErr.Details["fields"].([]FieldError)
		if !ok || len(fields) != 1 {
			t.Fatalf("Details[fields] = %v, want 1 entry", apiErr.Details["fields"])
		}
		if fields[0].Field != "top_n" || fields[0].Tag != "min" || fields[0].Param != "1" {
			t.Errorf("field = %+v", fields[0])
		}
	})

	t.Run("multiple fields", func(t *testing.T) {
		err := ValidateStruct(&similarInput{Identifier: "", TopN: 99})
		apiErr := err.ToAPIError()
		if fields, _ := apiErr.Details["fields"].([]FieldError); len(fields) != 2 {
			t.Fatalf("Details[fields] = %v, want 2 entries", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "identifier must not be blank") || !strings.Contains(apiErr.Message, "top_n must be at most 50") {
			t.Errorf("Message = %q", apiErr.Message)
		}
		if err.Error() != apiErr.Message {
			t.Errorf("Error() = %q, want %q", err.Error(), apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if msg := (Errors{}).ToAPIError().Message; msg != "Validation failed" {
			t.Errorf("Message = %q", msg)
		}
	})
}

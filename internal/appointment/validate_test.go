package appointment

import (
	"errors"
	"strings"
	"testing"
)

func fieldsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("errors.Is(err, ErrInvalid) = false")
	}
	return ve.Fields
}

func hasField(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func TestValidate_PhoneOnly(t *testing.T) {
	got, err := Validate(Request{Name: "  Pat  ", Phone: " 314-555-0100 "})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Name != "Pat" || got.Phone != "314-555-0100" {
		t.Errorf("trimmed request = %+v", got)
	}
}

func TestValidate_FullBookingWithoutPhone(t *testing.T) {
	_, err := Validate(Request{
		Name:          "Pat",
		Location:      "Kirkwood",
		ServiceType:   "Brakes",
		PreferredDate: "2026-11-02",
		PreferredTime: "morning",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_MissingName(t *testing.T) {
	for _, name := range []string{"", "   "} {
		fields := fieldsOf(t, mustFail(t, Request{Name: name, Phone: "314-555-0100"}))
		if len(fields) != 1 || fields[0].Field != "name" || fields[0].Message != "name is required" {
			t.Errorf("name %q: fields = %+v", name, fields)
		}
	}
}

func TestValidate_MissingContact(t *testing.T) {
	fields := fieldsOf(t, mustFail(t, Request{Name: "Pat", Location: "Kirkwood"}))
	if len(fields) != 1 {
		t.Fatalf("fields = %+v, want a single contact error", fields)
	}
	if fields[0].Field != "phone" || fields[0].Message != contactMessage {
		t.Errorf("fields[0] = %+v", fields[0])
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	fields := fieldsOf(t, mustFail(t, Request{Email: "not-an-email"}))
	for _, want := range []string{"email", "name", "phone"} {
		if !hasField(fields, want) {
			t.Errorf("missing %q in %+v", want, fields)
		}
	}
	for i := 1; i < len(fields); i++ {
		if fields[i-1].Field > fields[i].Field {
			t.Errorf("fields not sorted: %+v", fields)
		}
	}
}

func TestValidate_BadPhoneAndLongNotes(t *testing.T) {
	fields := fieldsOf(t, mustFail(t, Request{
		Name:  "Pat",
		Phone: "call me maybe",
		Notes: strings.Repeat("x", 2001),
	}))
	if !hasField(fields, "phone") || !hasField(fields, "notes") {
		t.Errorf("fields = %+v, want phone and notes", fields)
	}
}

func TestValidate_BlankOptionalFieldsAreIgnored(t *testing.T) {
	if _, err := Validate(Request{Name: "Pat", Phone: "3145550100", Email: "  ", Notes: "\t"}); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := mustFail(t, Request{Phone: "3145550100"})
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func mustFail(t *testing.T, req Request) error {
	t.Helper()
	_, err := Validate(req)
	if err == nil {
		t.Fatalf("Validate(%+v) succeeded, want error", req)
	}
	return err
}

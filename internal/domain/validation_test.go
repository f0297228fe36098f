package domain

import (
	"errors"
	"testing"
)

func TestRespondentValidation(t *testing.T) {
	v := NewRespondentValidator(nil)

	if err := v.Validate(Respondent{Name: "A B", Email: "a@acme.com", Company: "Acme", Position: "CISO"}); err != nil {
		t.Fatalf("expected valid respondent, got %v", err)
	}

	err := v.Validate(Respondent{Name: "A", Email: "someone@Gmail.com", Company: " ", Position: "CISO"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "email", "company"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected %s to be rejected, got %+v", field, verr.Fields)
		}
	}
	if _, ok := verr.Fields["position"]; ok {
		t.Fatalf("position should be accepted, got %+v", verr.Fields)
	}
	if verr.Fields["email"] != "Please use your business email address." {
		t.Fatalf("expected blocklist message, got %q", verr.Fields["email"])
	}
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@acme.com":         true,
		"first.last@corp.kw": true,
		"":                   false,
		"no-at-sign":         false,
		"a@localhost":        false,
		"Name <a@acme.com>":  false,
		"a@acme.com.":        false,
	}
	for in, want := range cases {
		if got := ValidEmail(in); got != want {
			t.Fatalf("ValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsultationValidation(t *testing.T) {
	ok := ConsultationRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@acme.com"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid booking without phone, got %v", err)
	}

	bad := ConsultationRequest{FirstName: "A", LastName: "Lovelace", Email: "ada", Phone: "123"}
	var verr *ValidationError
	if !errors.As(bad.Validate(), &verr) {
		t.Fatalf("expected validation error")
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected firstName, email and phone errors, got %+v", verr.Fields)
	}
}

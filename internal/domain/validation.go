package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// DefaultBlockedEmailDomains are free-mail providers rejected for business email addresses.
var DefaultBlockedEmailDomains = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"aol.com",
	"icloud.com",
	"mail.com",
}

const minFieldLength = 2

// RespondentValidator checks respondent details before the first question.
type RespondentValidator struct {
	blocked map[string]struct{}
}

// NewRespondentValidator builds a validator; a nil list falls back to DefaultBlockedEmailDomains.
func NewRespondentValidator(blockedDomains []string) *RespondentValidator {
	if blockedDomains == nil {
		blockedDomains = DefaultBlockedEmailDomains
	}
	blocked := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		blocked[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &RespondentValidator{blocked: blocked}
}

// Normalize trims surrounding whitespace from every field.
func (r Respondent) Normalize() Respondent {
	return Respondent{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Company:  strings.TrimSpace(r.Company),
		Position: strings.TrimSpace(r.Position),
	}
}

// Complete reports whether every respondent field is present.
func (r Respondent) Complete() bool {
	r = r.Normalize()
	return r.Name != "" && r.Email != "" && r.Company != "" && r.Position != ""
}

// Validate returns a *ValidationError describing every rejected field, or nil.
func (v *RespondentValidator) Validate(r Respondent) error {
	r = r.Normalize()
	verr := &ValidationError{}
	if utf8.RuneCountInString(r.Name) < minFieldLength {
		verr.Add("name", "Please enter a valid name.")
	}
	if utf8.RuneCountInString(r.Company) < minFieldLength {
		verr.Add("company", "Company name cannot be empty.")
	}
	if utf8.RuneCountInString(r.Position) < minFieldLength {
		verr.Add("position", "Please enter a valid position.")
	}
	if !ValidEmail(r.Email) {
		verr.Add("email", "Please enter a valid email address.")
	} else if v.Blocked(r.Email) {
		verr.Add("email", "Please use your business email address.")
	}
	return verr.OrNil()
}

// Blocked reports whether the address belongs to a blocked domain.
func (v *RespondentValidator) Blocked(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	_, ok := v.blocked[strings.ToLower(email[at+1:])]
	return ok
}

// ValidEmail accepts a bare address (no display name) with a dotted domain.
func ValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Validate checks a consultation booking.
func (c ConsultationRequest) Validate() error {
	verr := &ValidationError{}
	if utf8.RuneCountInString(strings.TrimSpace(c.FirstName)) < minFieldLength {
		verr.Add("firstName", "Please enter a valid first name.")
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.LastName)) < minFieldLength {
		verr.Add("lastName", "Please enter a valid last name.")
	}
	if !ValidEmail(strings.TrimSpace(c.Email)) {
		verr.Add("email", "Please enter a valid email address.")
	}
	if phone := strings.TrimSpace(c.Phone); phone != "" {
		switch n := utf8.RuneCountInString(phone); {
		case n < 7:
			verr.Add("phone", "Please enter a valid phone number.")
		case n > 20:
			verr.Add("phone", "Phone number is too long.")
		}
	}
	return verr.OrNil()
}

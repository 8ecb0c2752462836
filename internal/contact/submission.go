package contact

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits
const (
	nameMin    = 2
	nameMax    = 100
	messageMin = 10
	messageMax = 5000
	subjectMax = 200
	companyMax = 200
)

var phonePattern = regexp.MustCompile(`^\+?[0-9()\-.\s]{7,20}$`)

// Submission is one contact-form post
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// FieldError is one validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Normalize trims every field and reduces name, company, subject and
// message to plain text
func (s Submission) Normalize() Submission {
	return Submission{
		Name:    PlainText(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Company: PlainText(s.Company),
		Phone:   strings.TrimSpace(s.Phone),
		Subject: PlainText(s.Subject),
		Message: PlainText(s.Message),
	}
}

// Validate returns every failing field, in form order. Call on a
// normalized submission.
func (s Submission) Validate() []FieldError {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	switch n := utf8.RuneCountInString(s.Name); {
	case n == 0:
		add("name", "Name is required")
	case n < nameMin || n > nameMax:
		add("name", "Name must be between 2 and 100 characters")
	}

	switch {
	case s.Email == "":
		add("email", "Email is required")
	case !validEmail(s.Email):
		add("email", "Please enter a valid email address")
	}

	if utf8.RuneCountInString(s.Company) > companyMax {
		add("company", "Company must be at most 200 characters")
	}

	if s.Phone != "" && !validPhone(s.Phone) {
		add("phone", "Please enter a valid phone number")
	}

	if utf8.RuneCountInString(s.Subject) > subjectMax {
		add("subject", "Subject must be at most 200 characters")
	}

	switch n := utf8.RuneCountInString(s.Message); {
	case n == 0:
		add("message", "Message is required")
	case n < messageMin || n > messageMax:
		add("message", "Message must be between 10 and 5000 characters")
	}

	return errs
}

// validEmail accepts a bare address with a dotted domain, no display name
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func validPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

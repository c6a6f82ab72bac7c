package service

import (
	"strings"
	"unicode/utf8"

	"confessionrelay/internal/domain"
)

// Validator applies the content policy. It has no side effects.
type Validator struct {
	minWords int
	maxChars int
}

func NewValidator(minWords, maxChars int) *Validator {
	return &Validator{minWords: minWords, maxChars: maxChars}
}

// Validate checks the word floor first, then the character ceiling. Words are
// whitespace-separated runs; characters are counted as code points. An empty
// photo caption is reported as a missing caption rather than as too short.
func (v *Validator) Validate(p domain.Payload) domain.ValidationResult {
	if p.Kind == domain.KindPhoto && p.Body == "" {
		return domain.ValidationResult{Reason: domain.ReasonMissingCaption}
	}

	words := len(strings.Fields(p.Body))
	if words < v.minWords {
		return domain.ValidationResult{Reason: domain.ReasonTooShort, WordCount: words}
	}
	if utf8.RuneCountInString(p.Body) > v.maxChars {
		return domain.ValidationResult{Reason: domain.ReasonTooLong, WordCount: words}
	}
	return domain.ValidationResult{OK: true, WordCount: words}
}

func (v *Validator) MinWords() int { return v.minWords }
func (v *Validator) MaxChars() int { return v.maxChars }

package settings

import (
	"fmt"
	"strings"

	"github.com/voxkit/voxkit/pkg/types"
)

// Enumerated value sets for validation.
var (
	validFormats  = []types.AudioFormat{types.FormatMP3, types.FormatWAV, types.FormatOGG}
	validGenders  = []string{"male", "female"}
	validUseCases = []string{"assistant", "narrator", "casual"}
	validTones    = []string{"neutral", "friendly", "professional"}
)

// Speed bounds for DefaultSpeed.
const (
	minSpeed = 0.5
	maxSpeed = 2.0
)

// Partial is a partial settings update for validation purposes; nil fields
// are not checked.
type Partial struct {
	DefaultSpeed    *float64
	DefaultFormat   *types.AudioFormat
	PreferredGender *string
	UseCase         *string
	EmotionalTone   *string
}

// Validate runs range and enum checks over the set fields of partial and
// returns human-readable violation strings. An empty result means valid.
func Validate(partial Partial) []string {
	var violations []string

	if partial.DefaultSpeed != nil {
		if *partial.DefaultSpeed < minSpeed || *partial.DefaultSpeed > maxSpeed {
			violations = append(violations,
				fmt.Sprintf("defaultSpeed %v is out of range [%.1f, %.1f]", *partial.DefaultSpeed, minSpeed, maxSpeed))
		}
	}
	if partial.DefaultFormat != nil {
		ok := false
		for _, f := range validFormats {
			if *partial.DefaultFormat == f {
				ok = true
				break
			}
		}
		if !ok {
			violations = append(violations,
				fmt.Sprintf("defaultFormat %q is not one of %s", *partial.DefaultFormat, joinFormats(validFormats)))
		}
	}
	violations = appendEnumViolation(violations, "preferredGender", partial.PreferredGender, validGenders)
	violations = appendEnumViolation(violations, "useCase", partial.UseCase, validUseCases)
	violations = appendEnumViolation(violations, "emotionalTone", partial.EmotionalTone, validTones)

	return violations
}

// ValidateSettings checks every validatable field of a full settings value.
// Used by the import path, which rejects the whole snapshot on any violation.
func ValidateSettings(s types.VoiceSettings) []string {
	p := Partial{
		DefaultSpeed:  &s.DefaultSpeed,
		DefaultFormat: &s.DefaultFormat,
	}
	if s.VoicePreferences.PreferredGender != "" {
		p.PreferredGender = &s.VoicePreferences.PreferredGender
	}
	if s.VoicePreferences.UseCase != "" {
		p.UseCase = &s.VoicePreferences.UseCase
	}
	if s.VoicePreferences.EmotionalTone != "" {
		p.EmotionalTone = &s.VoicePreferences.EmotionalTone
	}
	return Validate(p)
}

func appendEnumViolation(violations []string, field string, value *string, valid []string) []string {
	if value == nil {
		return violations
	}
	for _, v := range valid {
		if *value == v {
			return violations
		}
	}
	return append(violations,
		fmt.Sprintf("%s %q is not one of %s", field, *value, strings.Join(valid, ", ")))
}

func joinFormats(formats []types.AudioFormat) string {
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

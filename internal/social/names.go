package social

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

// Name length bounds for religions and civilizations. Role names share the
// upper bound but may be as short as one rune.
const (
	MinNameLength        = 3
	MaxNameLength        = 32
	MinRoleNameLength    = 1
	MaxDescriptionLength = 200
)

var validate = validator.New()

// ValidateName trims name and checks its length (in runes) and content.
func ValidateName(name string, minLen, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	// min and max count runes for strings.
	if err := validate.Var(name, fmt.Sprintf("min=%d,max=%d", minLen, maxLen)); err != nil {
		return "", Errorf(CodeInvalidName, []string{"name", name},
			"name %q must be %d-%d characters", name, minLen, maxLen)
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return "", Errorf(CodeInvalidName, []string{"name", name}, "name %q contains control characters", name)
	}
	return name, nil
}

// ValidateDescription trims text and checks its length.
func ValidateDescription(text string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.Var(text, fmt.Sprintf("max=%d", MaxDescriptionLength)); err != nil {
		return "", Errorf(CodeInvalidInput, nil, "description longer than %d characters", MaxDescriptionLength)
	}
	return text, nil
}

// FoldName returns the case-insensitive key used for name uniqueness.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

package controller

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks fields against the rules of spec. Rules marked OnCreate
// apply only when creating is true. It returns nil when every rule passes,
// otherwise a *types.ValidationError with one message per failing field.
func Validate(spec types.CollectionSpec, fields types.Fields, creating bool) error {
	title := cases.Title(language.English, cases.NoLower)
	errs := map[string]string{}
	for _, rule := range spec.Rules {
		if rule.OnCreate && !creating {
			continue
		}
		if _, failed := errs[rule.Field]; failed {
			continue
		}
		label := title.String(rule.Field)
		if msg := checkRule(rule, fields, label, title); msg != "" {
			if rule.Message != "" {
				msg = rule.Message
			}
			errs[rule.Field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &types.ValidationError{Fields: errs}
}

func checkRule(rule types.Rule, fields types.Fields, label string, title cases.Caser) string {
	raw, present := fields[rule.Field]
	value := ""
	if present && raw != nil {
		value = strings.TrimSpace(fmt.Sprint(raw))
	}
	if value == "" {
		if rule.Required {
			return label + " is required"
		}
		if rule.EqualTo == "" {
			return ""
		}
	}
	if rule.Email && !emailPattern.MatchString(value) {
		return label + " is invalid"
	}
	if rule.MinLength > 0 && len([]rune(value)) < rule.MinLength {
		return fmt.Sprintf("%s must be at least %d characters", label, rule.MinLength)
	}
	if rule.EqualTo != "" {
		if !present || fmt.Sprint(raw) != fmt.Sprint(fields[rule.EqualTo]) {
			return fmt.Sprintf("%s must match %s", label, title.String(rule.EqualTo))
		}
	}
	return ""
}

package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_'+\-]+(\.[A-Za-z0-9_'+\-]+)*@([A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)

// ValidEmail reports whether s is a syntactically valid address within MaxEmailLen.
func ValidEmail(s string) bool {
	return runeLen(s) <= MaxEmailLen && emailPattern.MatchString(s)
}

// ParseCreateLeadRequest decodes and validates an untrusted intake body.
// It returns ErrInvalidBody when the body is not a JSON object and a
// *ValidationError listing every offending field otherwise.
func ParseCreateLeadRequest(body []byte, cfg Config) (*CreateLeadRequest, error) {
	cfg = cfg.normalized()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, ErrInvalidBody
	}

	v := &ValidationError{}
	req := &CreateLeadRequest{}

	if name, ok := stringField(v, raw, "contact_name"); !ok {
		if !present(raw, "contact_name") {
			v.add("contact_name", "is required")
		}
	} else {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			v.add("contact_name", "must not be empty")
		case runeLen(name) > MaxContactNameLen:
			v.add("contact_name", fmt.Sprintf("must be at most %d characters", MaxContactNameLen))
		default:
			req.ContactName = name
		}
	}

	if email, ok := stringField(v, raw, "email"); ok {
		email = strings.TrimSpace(email)
		switch {
		case runeLen(email) > MaxEmailLen:
			v.add("email", fmt.Sprintf("must be at most %d characters", MaxEmailLen))
		case !ValidEmail(email):
			v.add("email", "must be a valid email address")
		default:
			req.Email = email
		}
	}

	req.Phone = boundedString(v, raw, "phone", MaxPhoneLen)
	req.BusinessName = boundedString(v, raw, "business_name", MaxBusinessNameLen)
	req.PainPoints = boundedString(v, raw, "pain_points", MaxPainPointsLen)

	req.Interests = interestsField(v, raw)

	// source and priority only default when the key is missing; null is rejected.
	req.Source = cfg.DefaultSource
	if sent(raw, "source") {
		if !present(raw, "source") {
			v.add("source", "must be a string")
		} else {
			req.Source = boundedString(v, raw, "source", MaxSourceLen)
		}
	}

	req.Priority = cfg.DefaultPriority
	if sent(raw, "priority") {
		priority, ok := stringField(v, raw, "priority")
		priority = strings.TrimSpace(priority)
		switch {
		case !ok && present(raw, "priority"):
		case !validPriority(priority):
			v.add("priority", "must be one of low, medium, high")
		default:
			req.Priority = priority
		}
	}

	req.QualificationScore = scoreField(v, raw)

	if !v.empty() {
		return nil, v
	}
	return req, nil
}

// sent reports whether the key exists at all, null included.
func sent(raw map[string]json.RawMessage, field string) bool {
	_, ok := raw[field]
	return ok
}

// present reports whether field was sent with a non-null value.
func present(raw map[string]json.RawMessage, field string) bool {
	val, ok := raw[field]
	if !ok {
		return false
	}
	return !bytes.Equal(bytes.TrimSpace(val), []byte("null"))
}

// stringField decodes an optional string. ok is false when the field is
// absent, null, or of the wrong type (the last case is recorded on v).
func stringField(v *ValidationError, raw map[string]json.RawMessage, field string) (string, bool) {
	if !present(raw, field) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw[field], &s); err != nil {
		v.add(field, "must be a string")
		return "", false
	}
	return s, true
}

func boundedString(v *ValidationError, raw map[string]json.RawMessage, field string, max int) string {
	s, ok := stringField(v, raw, field)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if runeLen(s) > max {
		v.add(field, fmt.Sprintf("must be at most %d characters", max))
		return ""
	}
	return s
}

func interestsField(v *ValidationError, raw map[string]json.RawMessage) []string {
	if !present(raw, "interests") {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw["interests"], &items); err != nil {
		v.add("interests", "must be an array of strings")
		return nil
	}
	if len(items) > MaxInterests {
		v.add("interests", fmt.Sprintf("must contain at most %d items", MaxInterests))
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("interests[%d]", i)
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			v.add(field, "must be a string")
			continue
		}
		if runeLen(s) > MaxInterestLen {
			v.add(field, fmt.Sprintf("must be at most %d characters", MaxInterestLen))
			continue
		}
		out = append(out, s)
	}
	return out
}

func scoreField(v *ValidationError, raw map[string]json.RawMessage) *float64 {
	if !present(raw, "qualification_score") {
		return nil
	}
	var score float64
	if err := json.Unmarshal(raw["qualification_score"], &score); err != nil {
		v.add("qualification_score", "must be a number")
		return nil
	}
	if score < MinScore || score > MaxScore {
		v.add("qualification_score", fmt.Sprintf("must be between %d and %d", MinScore, MaxScore))
		return nil
	}
	return &score
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

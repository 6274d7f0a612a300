package services

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"idea-incubator-backend/pkg/apperrors"
)

const (
	minNameLen        = 2
	maxNameLen        = 20
	minPasswordLen    = 6
	maxPasswordBytes  = 72 // bcrypt 上限
	maxAddressLen     = 100
	maxTitleLen       = 100
	maxIdeaDescLen    = 2000
	maxTagLen         = 30
	maxMessageLen     = 500
	maxStartupNameLen = 100
	minStartupDescLen = 100
	maxStartupDescLen = 1000
)

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// err returns nil when nothing was collected.
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	// 只取一条作为主消息，完整列表放在 details
	var first string
	for _, key := range []string{"firstName", "lastName", "email", "password", "mobileNumber", "address",
		"title", "description", "tags", "name", "message", "role", "equity", "goal", "raised"} {
		if msg, ok := f[key]; ok {
			first = msg
			break
		}
	}
	if first == "" {
		for _, msg := range f {
			first = msg
			break
		}
	}
	return apperrors.Validation("%s", first).WithDetails(map[string]string(f))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// normalizeName trims and lowercases a person name and checks its length.
func normalizeName(f fieldErrors, field, label, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch n := runeLen(v); {
	case n == 0:
		f.add(field, label+" is required")
	case n < minNameLen:
		f.add(field, label+" must be at least 2 characters long")
	case n > maxNameLen:
		f.add(field, label+" must be less than or equal to 20 characters")
	}
	return v
}

// normalizeEmail lowercases the address and validates it with net/mail.
func normalizeEmail(f fieldErrors, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		f.add("email", "Email is required")
		return v
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndex(v, "@")+1:], ".") {
		f.add("email", "Please enter a valid email address")
	}
	return v
}

func normalizeMobile(f fieldErrors, value string, required bool) string {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			f.add("mobileNumber", "Mobile number is required")
		}
		return v
	}
	if !mobilePattern.MatchString(v) {
		f.add("mobileNumber", "Phone number must be 10 digits")
	}
	return v
}

func checkLength(f fieldErrors, field, label, value string, required bool, limit int) string {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			f.add(field, label+" is required")
		}
		return v
	}
	if runeLen(v) > limit {
		f.add(field, label+" must be less than or equal to "+strconv.Itoa(limit)+" characters")
	}
	return v
}

// normalizeTags trims, lowercases and de-duplicates tags preserving order.
func normalizeTags(f fieldErrors, tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		v := strings.ToLower(strings.TrimSpace(t))
		if v == "" {
			continue
		}
		if runeLen(v) > maxTagLen {
			f.add("tags", "Each tag must be at most 30 characters")
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

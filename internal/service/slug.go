package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidSlug = errors.New("slug may only contain lowercase letters, digits and hyphens")

	slugPattern   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSeparator = regexp.MustCompile(`[^a-z0-9]+`)
)

// normalizeSlug validates an explicit slug or derives one from the title.
// Titles without any ASCII letters or digits get prefix plus a random suffix.
func normalizeSlug(raw, title, prefix string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if slug != "" {
		if !slugPattern.MatchString(slug) {
			return "", ErrInvalidSlug
		}
		return slug, nil
	}

	derived := strings.Trim(slugSeparator.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if derived == "" {
		return prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0], nil
	}
	if len(derived) > 160 {
		derived = strings.TrimRight(derived[:160], "-")
	}
	return derived, nil
}

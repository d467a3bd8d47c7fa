package httpapi

import (
	"errors"
	"regexp"
	"strings"
)

var assetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,31}$`)

var ErrInvalidAssetID = errors.New("asset id must be 2-32 characters: letters, digits, '_' or '-', starting with a letter or digit")

// NormalizeAssetID trims surrounding whitespace and checks the identifier
// format. Case is preserved.
func NormalizeAssetID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if !assetIDPattern.MatchString(id) {
		return "", ErrInvalidAssetID
	}
	return id, nil
}

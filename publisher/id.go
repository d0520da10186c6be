package publisher

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var hexID = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// IsValidID reports whether id is a Notion page or database id: 32 hex
// characters once hyphens are removed.
func IsValidID(id string) bool {
	return hexID.MatchString(strings.ReplaceAll(id, "-", ""))
}

// IDRule validates optional string values with IsValidID. Empty values pass so
// it composes with validation.Required; anything that is not a string fails.
var IDRule = validation.By(func(value interface{}) error {
	value, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return errors.New("must be a string")
	}
	if s == "" {
		return nil
	}
	if !IsValidID(s) {
		return errors.New("must be 32 hexadecimal characters, hyphens allowed")
	}
	return nil
})

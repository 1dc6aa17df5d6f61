package calls

import (
	"fmt"
	"strings"

	"github.com/xyz-asif/callboard/internal/pkg/validator"
)

// RegisterValidators installs the "category" binding rule
func RegisterValidators() error {
	values := make([]string, len(Categories))
	for i, c := range Categories {
		values[i] = string(c)
	}
	return validator.RegisterEnum("category", values...)
}

// ValidateEditCallRequest rejects present-but-blank text fields, which
// binding's omitempty lets through.
func ValidateEditCallRequest(req *EditCallRequest) error {
	fields := map[string]*string{
		"title":       req.Title,
		"description": req.Description,
	}
	for name, v := range fields {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("'%s' is not allowed to be empty", name)
		}
	}
	return nil
}

package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// Ukrainian mobile numbers: 0XXXXXXXXX with an optional +38 prefix.
	phoneRegex = regexp.MustCompile(`^\+?3?8?(0\d{9})$`)

	setupOnce sync.Once
	setupErr  error

	enumMu sync.Mutex
	enums  = map[string][]string{}
)

// IsValidPhone checks if the phone number format is valid
func IsValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	return phoneRegex.MatchString(phone)
}

// IsValidObjectID reports whether s is a 24-char hex Mongo id
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// Setup registers the project rules on gin's validator engine. Safe to call
// more than once.
func Setup() error {
	setupOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("unexpected validator engine")
			return
		}

		v.RegisterTagNameFunc(fieldName)

		if err := v.RegisterValidation("uaphone", func(fl validator.FieldLevel) bool {
			return IsValidPhone(fl.Field().String())
		}); err != nil {
			setupErr = err
			return
		}
		setupErr = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
	})
	return setupErr
}

// RegisterEnum adds a rule named tag that accepts only the given values.
func RegisterEnum(tag string, values ...string) error {
	if err := Setup(); err != nil {
		return err
	}

	enumMu.Lock()
	_, exists := enums[tag]
	enums[tag] = values
	enumMu.Unlock()
	if exists {
		return nil
	}

	v := binding.Validator.Engine().(*validator.Validate)
	return v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		enumMu.Lock()
		allowed := enums[tag]
		enumMu.Unlock()

		value := fl.Field().String()
		for _, a := range allowed {
			if a == value {
				return true
			}
		}
		return false
	})
}

// Message turns a binding error into a single client-facing sentence.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "uaphone":
		return fmt.Sprintf("Invalid '%s'. Please, use +380000000000 format", field)
	case "objectid":
		return fmt.Sprintf("Invalid '%s'. Must be a MongoDB ObjectId", field)
	case "min":
		return fmt.Sprintf("'%s' must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of [%s]", field, fe.Param())
	default:
		enumMu.Lock()
		allowed, isEnum := enums[fe.Tag()]
		enumMu.Unlock()
		if isEnum {
			return fmt.Sprintf("'%s' must be one of [%s]", field, strings.Join(allowed, ", "))
		}
		return fmt.Sprintf("'%s' is invalid", field)
	}
}

// UnknownFormField reports the first key of values (in sorted order) that has
// no `form` tag on obj. Form bodies bypass the JSON decoder, so unknown keys
// have to be caught here.
func UnknownFormField(values map[string][]string, obj interface{}) (string, bool) {
	t := reflect.TypeOf(obj)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "", false
	}

	allowed := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("form"), ",", 2)[0]
		if name != "" && name != "-" {
			allowed[name] = true
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			return k, true
		}
	}
	return "", false
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

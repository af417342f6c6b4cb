package dto

import (
	"html"
	"reflect"
	"strings"

	"linkpay/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("party_id", validatePartyID)
		_ = v.RegisterValidation("pin", validatePin)
		_ = v.RegisterValidation("phone", validatePhone)
	}
}

// validatePartyID accepts MR/UR prefixed identifiers of six hex digits.
func validatePartyID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if len(id) != 8 {
		return false
	}
	if _, ok := domain.PartyTypeOf(id); !ok {
		return false
	}
	for _, r := range id[2:] {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return false
		}
	}
	return true
}

func validatePin(fl validator.FieldLevel) bool {
	return domain.ValidPin(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return domain.ValidPhone(fl.Field().String())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Fields tagged
// sanitize:"-" are left untouched.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

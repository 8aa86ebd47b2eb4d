package simplemedia

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-media/pkg/simplemedia/orderkey"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("key", func(fl validator.FieldLevel) bool {
		return ValidateKey(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateLookupKey, Key{})
	v.RegisterStructValidation(validateBindingKey, BindingKey{})
	return v
}

func validateLookupKey(sl validator.StructLevel) {
	k := sl.Current().Interface().(Key)
	if (k.ID == "") == (k.Name == "") {
		sl.ReportError(k.ID, "ID", "ID", "id_xor_name", "")
	}
}

func validateBindingKey(sl validator.StructLevel) {
	k := sl.Current().Interface().(BindingKey)
	byPosition := k.PlaylistID != "" && k.Rank != ""
	if (k.ID != "") == byPosition {
		sl.ReportError(k.ID, "ID", "ID", "id_xor_position", "")
	}
}

// ValidateKey checks that s can be used as a playlist or media ID. Media
// IDs double as blob object names, so path separators, dot segments and
// control characters are rejected.
func ValidateKey(s string) error {
	switch {
	case s == "":
		return errors.New("empty key")
	case len(s) > 255:
		return errors.New("key longer than 255 bytes")
	case s == "." || s == "..":
		return fmt.Errorf("key %q is a dot segment", s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("key %q contains a path separator", s)
	case strings.ContainsFunc(s, unicode.IsControl):
		return fmt.Errorf("key %q contains a control character", s)
	}
	return nil
}

// ValidateRank checks that rank is a valid order key.
func ValidateRank(rank string) error {
	if err := orderkey.Validate(rank); err != nil {
		return &InvalidRankError{Rank: rank, Err: err}
	}
	return nil
}

func validateRequest(op string, req any) error {
	if err := validate.Struct(req); err != nil {
		return &ValidationError{Op: op, Err: err}
	}
	return nil
}

func validateOrder(op string, order []Order, allowed []string) error {
	for _, o := range order {
		if !slices.Contains(allowed, o.Field) {
			return &ValidationError{Op: op, Err: fmt.Errorf("cannot order by %q", o.Field)}
		}
	}
	return nil
}

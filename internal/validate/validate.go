// Package validate checks checkout form input and reports failures keyed
// by form field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/fusionx/internal/domain"
)

var (
	personNameRe = regexp.MustCompile(`^[a-zA-Z'-]+$`)
	fullNameRe   = regexp.MustCompile(`^[a-zA-Z'\-\s]+$`)
	pincodeRe    = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	mobileRe     = regexp.MustCompile(`^[0-9]{10}$`)
)

// Form field names.
const (
	FieldFName = "given-name"
	FieldLName = "family-name"
	FieldEmail = "email"
	FieldTel   = "tel-local"

	BillToPrefix = "billto"
	ShipToPrefix = "shipto"
)

type contactForm struct {
	FName string `form:"given-name" label:"First Name" validate:"required,min=2,max=30,norepeat,personname"`
	LName string `form:"family-name" label:"Last Name" validate:"required,min=2,max=30,norepeat,personname"`
	Email string `form:"email" label:"Email" validate:"required,min=6,max=254,email"`
}

type addressForm struct {
	PostalCode string `form:"postal-code" label:"Pincode" validate:"required,pincode"`
	Name       string `form:"name" label:"Full Name" validate:"required,min=2,max=30,norepeat,fullname"`
	Street     string `form:"street-address" label:"Address" validate:"required,min=20,max=130"`
}

// Validator wraps a configured validator.Validate. It is safe for
// concurrent use.
type Validator struct {
	v *validator.Validate
}

// New registers the storefront's custom rules.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})

	mustRegister(v, "personname", matches(personNameRe))
	mustRegister(v, "fullname", matches(fullNameRe))
	mustRegister(v, "pincode", matches(pincodeRe))
	mustRegister(v, "mobile", matches(mobileRe))
	mustRegister(v, "norepeat", func(fl validator.FieldLevel) bool {
		return !IsRepeated(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// IsRepeated reports whether s is one shorter sequence repeated, such as
// "abab" or "aa".
func IsRepeated(s string) bool {
	if s == "" {
		return false
	}
	return strings.Index((s + s)[1:], s)+1 != len(s)
}

// Contact validates the contact block. The mobile number is only checked
// when requireTel is set.
func (val *Validator) Contact(c domain.Contact, requireTel bool) error {
	form := contactForm{FName: c.FName, LName: c.LName, Email: c.Email}

	var out error
	if err := val.v.Struct(form); err != nil {
		out = collect(out, err, form, "")
	}

	if requireTel {
		if err := val.Mobile(c.Tel); err != nil {
			out = merge(out, err)
		}
	}
	return out
}

// Mobile validates a ten digit mobile number.
func (val *Validator) Mobile(tel string) error {
	if tel == "" {
		return domain.NewValidationError("", FieldTel, "Mobile no is required.")
	}
	if err := val.v.Var(tel, "len=10,mobile"); err != nil {
		return domain.NewValidationError("", FieldTel, "Please enter a valid mobile no.")
	}
	return nil
}

// Address validates an address entered under prefix ("billto" or "shipto").
func (val *Validator) Address(prefix string, a domain.Address) error {
	form := addressForm{PostalCode: a.PostalCode, Name: a.Name, Street: a.StreetAddress}
	if err := val.v.Struct(form); err != nil {
		return collect(nil, err, form, prefix)
	}
	return nil
}

// PostalCode checks only the shape of a PIN code.
func (val *Validator) PostalCode(code string) bool {
	return val.v.Var(code, "required,pincode") == nil
}

// Merge combines validation errors from several checks into one.
func Merge(errs ...error) error {
	var out error
	for _, err := range errs {
		out = merge(out, err)
	}
	return out
}

func merge(into, err error) error {
	if err == nil {
		return into
	}
	for field, msg := range domain.GetValidationFields(err) {
		into = domain.AddFieldError(into, field, msg)
	}
	return into
}

// collect turns validator failures on form into field-keyed messages.
func collect(into, err error, form any, prefix string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.AddFieldError(into, "form", err.Error())
	}

	t := reflect.TypeOf(form)
	for _, fe := range fieldErrs {
		label := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			label = sf.Tag.Get("label")
		}

		key := fe.Field()
		if prefix != "" {
			key = prefix + "-" + key
		}
		into = domain.AddFieldError(into, key, message(fe, label))
	}
	return into
}

func message(fe validator.FieldError, label string) string {
	if fe.Field() == FieldEmail {
		if fe.Tag() == "required" {
			return "Email is required."
		}
		return "Please enter a valid email."
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s cannot be less than %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot be longer than %s characters", label, fe.Param())
	case "norepeat":
		return "Please provide a valid " + label
	case "personname":
		return "Only a - z, ' and - characters are allowed."
	case "fullname":
		return "Only a - z, ', - and <space> characters are allowed."
	case "pincode":
		return "Not a valid Pincode"
	default:
		return "Please provide a valid " + label
	}
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"rewards-strategist/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validate carries the domain tags: category, preference, rewardtype and
// notblank.
var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages match job variables
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	})

	// empty means "use the stored preference"
	_ = Validate.RegisterValidation("preference", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if strings.TrimSpace(s) == "" {
			return true
		}
		_, ok := models.ParsePreference(s)
		return ok
	})

	_ = Validate.RegisterValidation("rewardtype", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRewardType(fl.Field().String())
		return ok
	})

	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Struct validates v and flattens field errors into one message such as
// "spendAmount: gte=0; category: category".
func Struct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), rule))
	}
	return errors.New(strings.Join(parts, "; "))
}

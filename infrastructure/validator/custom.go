package validator

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateBase64Image accepts raw base64 or a data URI and requires enough
// payload to plausibly hold an image.
func validateBase64Image(fl validator.FieldLevel) bool {
	payload := fl.Field().String()
	if sep := strings.Index(payload, ";base64,"); sep != -1 {
		payload = payload[sep+len(";base64,"):]
	}
	if len(payload) < 100 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

func validateModelType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "facenet", "arcface":
		return true
	}
	return false
}

func validateStruct(payload interface{}) *[]error {
	validationErrors := []error{}
	err := validate.Struct(payload)
	if err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, fmt.Errorf("%s failed validation for rule %s", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	if len(validationErrors) == 0 {
		return nil
	}
	return &validationErrors
}

func validateField(value any, rules string) error {
	return validate.Var(value, rules)
}

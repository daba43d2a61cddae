package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

var (
	errBodyInvalidJSON = func(err string) *Error {
		return &Error{
			Type:    "validation.body.invalidJSON",
			Message: "Body is not a valid JSON input.",
			Details: map[string]any{
				"error": err,
			},
		}
	}
	errBodyParameterInvalidType = func(name, expectedType string) *Error {
		return &Error{
			Type:    "validation.body.parameter.invalidType",
			Message: fmt.Sprintf("The body parameter '%s' could not be assigned to the required type (%s).", name, expectedType),
			Details: map[string]any{
				"parameter":     name,
				"expected_type": expectedType,
			},
		}
	}
	errBodyParameterMissing = func(name string) *Error {
		return &Error{
			Type:    "validation.body.parameter.missing",
			Message: fmt.Sprintf("The body parameter '%s' is required but was not present.", name),
			Details: map[string]any{
				"parameter": name,
			},
		}
	}
	errBodyParameterNumberOutOfRange = func(name string, value, min, max int64) *Error {
		comparison := ""
		if value < min {
			comparison = fmt.Sprintf("%d [given] < %d [min]", value, min)
		} else if value > max {
			comparison = fmt.Sprintf("%d [given] > %d [max]", value, max)
		}

		return &Error{
			Type:    "validation.body.parameter.number.outOfRange",
			Message: fmt.Sprintf("The body parameter '%s' is out of the required range (%s).", name, comparison),
			Details: map[string]any{
				"parameter": name,
				"value":     value,
				"min":       min,
				"max":       max,
			},
		}
	}
)

// UnmarshalBody parses and decodes a JSON request body and performs validations on it
func UnmarshalBody[T any](request *http.Request) (*T, []*Error, error) {
	target := new(T)
	validationErrs, err := DecodeBody(request, target)
	if err != nil || len(validationErrs) > 0 {
		return nil, validationErrs, err
	}
	return target, nil, nil
}

// DecodeBody decodes a JSON request body into a pre-populated target and performs validations on it.
// Values absent from the body keep the target's defaults.
func DecodeBody(request *http.Request, target any) ([]*Error, error) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, err
	}
	return Decode(body, target)
}

// Decode decodes raw JSON into target and validates the result using the 'required', 'min' and 'max' struct tags.
// Malformed JSON is reported as a validation error, not as an error; the error return is reserved for illegal targets.
func Decode(data []byte, target any) ([]*Error, error) {
	if err := json.Unmarshal(data, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []*Error{errBodyParameterInvalidType(typeErr.Field, typeErr.Type.String())}, nil
		}
		return []*Error{errBodyInvalidJSON(err.Error())}, nil
	}
	return Validate(target)
}

// Validate performs the struct tag validations on an already decoded value.
// Slices and arrays are validated element-wise; values that are neither structs nor collections of structs pass.
func Validate(val any) ([]*Error, error) {
	ref := reflect.ValueOf(val)
	for ref.Kind() == reflect.Pointer {
		if ref.IsNil() {
			return nil, nil
		}
		ref = ref.Elem()
	}
	return validateValue("", ref)
}

func validateValue(prefix string, ref reflect.Value) ([]*Error, error) {
	switch ref.Kind() {
	case reflect.Pointer:
		if ref.IsNil() {
			return nil, nil
		}
		return validateValue(prefix, ref.Elem())
	case reflect.Struct:
		return validateStruct(prefix, ref)
	case reflect.Slice, reflect.Array:
		var errs []*Error
		for i := 0; i < ref.Len(); i++ {
			subErrs, err := validateValue(fmt.Sprintf("%s[%d].", prefix, i), ref.Index(i))
			if err != nil {
				return nil, err
			}
			errs = append(errs, subErrs...)
		}
		return errs, nil
	default:
		return nil, nil
	}
}

func validateStruct(fieldPrefix string, ref reflect.Value) ([]*Error, error) {
	if ref.Kind() != reflect.Struct {
		return nil, errors.New("illegal call to validateStruct with non-struct parameter")
	}
	typ := ref.Type()

	var errs []*Error

	for i := 0; i < typ.NumField(); i++ {
		fieldDef := typ.Field(i)
		if !fieldDef.IsExported() {
			continue
		}

		// Retrieve the validation requirements
		required := strings.EqualFold(fieldDef.Tag.Get("required"), "true")
		min, err := strconv.ParseInt(fieldDef.Tag.Get("min"), 10, 64)
		if err != nil {
			min = math.MinInt64
		}
		max, err := strconv.ParseInt(fieldDef.Tag.Get("max"), 10, 64)
		if err != nil {
			max = math.MaxInt64
		}

		fieldName := getFieldName(fieldDef)

		// Perform all validations on the field
		field := ref.Field(i)
		if required && isAbsent(field) {
			errs = append(errs, errBodyParameterMissing(fieldPrefix+fieldName))
			continue
		}
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}
		if field.CanUint() {
			val := int64(field.Uint())
			if val < min || val > max {
				errs = append(errs, errBodyParameterNumberOutOfRange(fieldPrefix+fieldName, val, min, max))
			}
		} else if field.CanInt() {
			val := field.Int()
			if val < min || val > max {
				errs = append(errs, errBodyParameterNumberOutOfRange(fieldPrefix+fieldName, val, min, max))
			}
		} else if field.Kind() == reflect.Struct || field.Kind() == reflect.Slice {
			subErrs, err := validateValue(fieldPrefix+fieldName+".", field)
			if err != nil {
				return nil, err
			}
			errs = append(errs, subErrs...)
		}
	}

	return errs, nil
}

// isAbsent reports whether a required field counts as missing.
// Only nillable kinds and strings can be absent; other zero values (0, false) are legitimate.
func isAbsent(field reflect.Value) bool {
	switch field.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return field.IsNil()
	case reflect.String:
		return strings.TrimSpace(field.String()) == ""
	default:
		return false
	}
}

func getFieldName(def reflect.StructField) string {
	jsonVal, ok := def.Tag.Lookup("json")
	if !ok || jsonVal == "-" {
		return def.Name
	}
	name, _, _ := strings.Cut(jsonVal, ",")
	return name
}

package appointment

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var requestSchema = mustSchema(schemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("appointment: invalid request schema: %v", err))
	}
	return s
}

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid appointment request")

// FieldError describes one rejected field, named by its JSON key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid appointment request: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

const contactMessage = "phone is required unless location, serviceType, preferredDate and preferredTime are all provided"

// contactFields are the keys covered by the phone-or-full-booking rule.
var contactFields = map[string]bool{
	"phone": true, "location": true, "serviceType": true, "preferredDate": true, "preferredTime": true,
}

// Validate trims req and checks it against the request schema. The returned
// Request is the trimmed form that should be stored.
func Validate(req Request) (Request, error) {
	req = req.trimmed()

	result, err := requestSchema.Validate(gojsonschema.NewGoLoader(req.document()))
	if err != nil {
		return req, fmt.Errorf("validating appointment request: %w", err)
	}
	if result.Valid() {
		return req, nil
	}

	var fields []FieldError
	missingContact := false
	for _, re := range result.Errors() {
		if re.Type() == "number_any_of" {
			missingContact = true
		}
	}
	for _, re := range result.Errors() {
		switch re.Type() {
		case "number_any_of":
			continue
		case "required":
			prop, _ := re.Details()["property"].(string)
			// Required errors from the anyOf branches collapse into one message.
			if missingContact && contactFields[prop] {
				continue
			}
			fields = append(fields, FieldError{Field: prop, Message: prop + " is required"})
		default:
			fields = append(fields, FieldError{Field: re.Field(), Message: describe(re)})
		}
	}
	if missingContact {
		fields = append(fields, FieldError{Field: "phone", Message: contactMessage})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return req, &ValidationError{Fields: fields}
}

func describe(re gojsonschema.ResultError) string {
	field := re.Field()
	switch re.Type() {
	case "string_lte":
		return fmt.Sprintf("%s must be at most %v characters", field, re.Details()["max"])
	case "string_gte":
		return fmt.Sprintf("%s must be at least %v characters", field, re.Details()["min"])
	case "format":
		return field + " must be a valid email address"
	case "pattern":
		return field + " contains invalid characters"
	default:
		return fmt.Sprintf("%s: %s", field, re.Description())
	}
}

package submission

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	attributeLoveValues      = []string{"Smile", "Eyes", "Hair", "Face", "Vibe", "Sense of Humor", "Heart"}
	relationshipStatusValues = []string{"Married", "Situationship", "Nanaship", "Crushing", "Long-Distance", "Dating"}
	vibeValues               = []string{"Romance", "Loud & Electric", "Mic On, No Cap"}
)

// CSVRecordFields are the companion fields of an ID-linked upload.
type CSVRecordFields struct {
	AdaNo   string `validate:"required,max=64" field:"ada_no"`
	Phone   string `validate:"required,numeric,len=10" field:"phone"`
	CSVFile string `validate:"omitempty,max=128" field:"csv_file"`
}

// VideoFields are the companion fields of a video request.
type VideoFields struct {
	MobileNumber       string `validate:"required,numeric,len=10" field:"mobile_number"`
	Gender             string `validate:"required,oneof=male female other unspecified" field:"gender"`
	AttributeLove      string `validate:"required,attribute_love" field:"attribute_love"`
	RelationshipStatus string `validate:"required,relationship_status" field:"relationship_status"`
	Vibe               string `validate:"required,vibe" field:"vibe"`
}

// FieldValidator checks companion fields for an endpoint.
type FieldValidator struct {
	validate   *validator.Validate
	defaultCSV string
}

// NewFieldValidator registers the enum validations whose values contain spaces or commas,
// which the oneof tag cannot express.
func NewFieldValidator(defaultCSV string) *FieldValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("field") })
	mustRegister(v, "attribute_love", attributeLoveValues)
	mustRegister(v, "relationship_status", relationshipStatusValues)
	mustRegister(v, "vibe", vibeValues)
	return &FieldValidator{validate: v, defaultCSV: defaultCSV}
}

func mustRegister(v *validator.Validate, tag string, values []string) {
	allowed := make(map[string]struct{}, len(values))
	for _, val := range values {
		allowed[val] = struct{}{}
	}
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Missing returns the required field names that are absent or blank, sorted.
func Missing(required []string, fields map[string]string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// CSVRecord validates fields for the update_csv_record endpoint.
func (f *FieldValidator) CSVRecord(fields map[string]string) (CSVRecord, error) {
	in := CSVRecordFields{
		AdaNo:   strings.TrimSpace(fields["ada_no"]),
		Phone:   strings.TrimSpace(fields["phone"]),
		CSVFile: strings.TrimSpace(fields["csv_file"]),
	}
	if err := f.validate.Struct(in); err != nil {
		return CSVRecord{}, fieldsError(err)
	}
	if in.CSVFile == "" {
		in.CSVFile = f.defaultCSV
	}
	return CSVRecord{AdaNo: in.AdaNo, NewNumber: in.Phone, CSVFile: in.CSVFile}, nil
}

// Video validates fields for the video_submit endpoint.
func (f *FieldValidator) Video(fields map[string]string) (VideoRequest, error) {
	in := VideoFields{
		MobileNumber:       strings.TrimSpace(fields["mobile_number"]),
		Gender:             strings.TrimSpace(fields["gender"]),
		AttributeLove:      strings.TrimSpace(fields["attribute_love"]),
		RelationshipStatus: strings.TrimSpace(fields["relationship_status"]),
		Vibe:               strings.TrimSpace(fields["vibe"]),
	}
	if err := f.validate.Struct(in); err != nil {
		return VideoRequest{}, fieldsError(err)
	}
	return VideoRequest(in), nil
}

// Check validates the companion fields an endpoint needs.
func (f *FieldValidator) Check(endpoint Endpoint, fields map[string]string) error {
	switch endpoint {
	case EndpointSearchFace:
		return nil
	case EndpointUpdateCSVRecord:
		_, err := f.CSVRecord(fields)
		return err
	case EndpointVideoSubmit:
		_, err := f.Video(fields)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}
}

// FieldsError lists the offending companion fields.
type FieldsError struct {
	Fields []string
}

func (e *FieldsError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

func (e *FieldsError) Unwrap() error { return ErrInvalidFields }

func fieldsError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidFields, err)
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	sort.Strings(names)
	return &FieldsError{Fields: names}
}

// Package validation checks request bodies against JSON Schemas reflected
// from the payload structs below.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/models"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxBodyBytes caps how much of a request body is read.
const MaxBodyBytes = 1 << 20

// Register is the body of POST /register.
type Register struct {
	Username string `json:"username" jsonschema:"required,minLength=1,maxLength=64"`
	Password string `json:"password" jsonschema:"required,minLength=1,maxLength=72,pattern=\\S"`
	Email    string `json:"email" jsonschema:"required,format=email,maxLength=254"`
}

// Login is the body of POST /login.
type Login struct {
	Username string `json:"username" jsonschema:"required,minLength=1"`
	Password string `json:"password" jsonschema:"required,minLength=1,pattern=\\S"`
}

// printable matches text with at least one non-space character and no
// control characters.
const printable = `^[^\p{Cc}]*\S[^\p{Cc}]*$`

func restrict(s *jsonschema.Schema, pattern string, fields ...string) {
	for _, f := range fields {
		if p, ok := s.Properties.Get(f); ok {
			p.Pattern = pattern
		}
	}
}

// JSONSchemaExtend keeps control characters out of stored identity fields.
func (Register) JSONSchemaExtend(s *jsonschema.Schema) {
	restrict(s, printable, "username", "email")
}

// JSONSchemaExtend keeps control characters out of lookups.
func (Login) JSONSchemaExtend(s *jsonschema.Schema) {
	restrict(s, printable, "username")
}

// Entry is the body of POST /diary. The owner is never part of it.
type Entry struct {
	Date              string           `json:"date" jsonschema:"required,format=date"`
	Mood              models.Mood      `json:"mood" jsonschema:"required"`
	Weight            float64          `json:"weight" jsonschema:"required,minimum=0"`
	Sleep             float64          `json:"sleep" jsonschema:"required,minimum=0,maximum=24"`
	ExerciseDuration  float64          `json:"exerciseDuration" jsonschema:"required,minimum=0"`
	ExerciseIntensity models.Intensity `json:"exerciseIntensity" jsonschema:"required"`
	Content           string           `json:"content" jsonschema:"required,maxLength=10000"`
}

// JSONSchemaExtend fills the enumerations from the model so the schema
// and models.Mood.Valid never disagree.
func (Entry) JSONSchemaExtend(s *jsonschema.Schema) {
	if p, ok := s.Properties.Get("mood"); ok {
		for _, m := range models.Moods {
			p.Enum = append(p.Enum, string(m))
		}
	}
	if p, ok := s.Properties.Get("exerciseIntensity"); ok {
		for _, i := range models.Intensities {
			p.Enum = append(p.Enum, string(i))
		}
	}
}

var (
	schemas sync.Map // reflect.Type -> *jschema.Schema
	printer = message.NewPrinter(language.English)
)

// Schema returns the JSON Schema document for payload type v.
func Schema(v any) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		Anonymous:                  true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

func compiled(v any) (*jschema.Schema, error) {
	t := reflect.TypeOf(v)
	if sch, ok := schemas.Load(t); ok {
		return sch.(*jschema.Schema), nil
	}

	raw, err := Schema(v)
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	name := strings.ToLower(t.Elem().Name()) + ".json"
	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	actual, _ := schemas.LoadOrStore(t, sch)
	return actual.(*jschema.Schema), nil
}

// Decode reads a JSON body from r, validates it against dst's schema and
// decodes it into dst, which must be a pointer to one of the payload
// structs. Problems with the body are returned as *apperr.ValidationError.
// Unknown properties are ignored.
func Decode(r io.Reader, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return apperr.Validation("request body could not be read")
	}
	if len(body) > MaxBodyBytes {
		return apperr.Validation("request body too large")
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return apperr.Validation("request body must be a JSON object")
	}

	sch, err := compiled(dst)
	if err != nil {
		return err
	}

	if err := sch.Validate(doc); err != nil {
		var ve *jschema.ValidationError
		if errors.As(err, &ve) {
			return apperr.Validation(details(ve, nil)...)
		}
		return apperr.Validation(err.Error())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("request body does not match the expected shape")
	}
	return nil
}

func details(ve *jschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		field := "body"
		if len(ve.InstanceLocation) > 0 {
			field = strings.Join(ve.InstanceLocation, ".")
		}
		return append(out, field+": "+ve.ErrorKind.LocalizedString(printer))
	}
	for _, c := range ve.Causes {
		out = details(c, out)
	}
	return out
}

package nodes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"nearflow/near"
)

var (
	accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)
	networkIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("param"); name != "" && name != "-" {
			return name
		}
		return field.Name
	})
	_ = v.RegisterValidation("near_account", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return len(id) >= 2 && len(id) <= 64 && accountIDPattern.MatchString(id)
	})
	_ = v.RegisterValidation("near_network", func(fl validator.FieldLevel) bool {
		return networkIDPattern.MatchString(fl.Field().String())
	})
	return v
}

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	},
	"default": func(fallback, v any) any {
		if v == nil || v == "" {
			return fallback
		}
		return v
	},
	// toYocto turns a NEAR amount such as "1.5" or 2 into yoctoNEAR, for
	// amount and attachedDeposit.
	"toYocto": func(v any) (string, error) {
		switch n := v.(type) {
		case float64:
			return near.ParseNearAmount(strconv.FormatFloat(n, 'f', -1, 64))
		case json.Number:
			return near.ParseNearAmount(n.String())
		default:
			return near.ParseNearAmount(fmt.Sprint(v))
		}
	},
}

// Parameters holds the compiled parameter templates of one node. Values are
// Go templates evaluated against the JSON of the item being processed, so
// `{{.accountId}}` reads the item's accountId field.
type Parameters struct {
	node      string
	def       NodeDefinition
	templates map[string]*template.Template
}

// CompileParameters parses raw parameter values for the node described by def.
func CompileParameters(nodeID string, def NodeDefinition, raw map[string]string) (*Parameters, error) {
	p := &Parameters{
		node:      nodeID,
		def:       def,
		templates: make(map[string]*template.Template, len(raw)),
	}
	for name, value := range raw {
		if _, ok := def.Parameter(name); !ok {
			return nil, fmt.Errorf("node %s: unknown parameter %q", nodeID, name)
		}
		tmpl, err := compileTemplate(name, value)
		if err != nil {
			return nil, fmt.Errorf("node %s: invalid parameter %q: %w", nodeID, name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Value evaluates one parameter for item, falling back to its default.
func (p *Parameters) Value(name string, item map[string]any) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		def, _ := p.def.Parameter(name)
		return def.Default, nil
	}
	value, err := render(tmpl, item)
	if err != nil {
		return "", fmt.Errorf("could not evaluate parameter %q: %w", name, err)
	}
	return value, nil
}

// compileTemplate parses an item template. Referencing a field the item does
// not have is an error; use index with default for optional fields.
func compileTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(text)
}

func render(tmpl *template.Template, item map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, item); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Bind evaluates every `param:"name"` field of the struct pointed to by out
// and validates the result.
func (p *Parameters) Bind(item map[string]any, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind target must be a struct pointer, got %T", out)
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("param")
		if name == "" || name == "-" {
			continue
		}
		value, err := p.Value(name, item)
		if err != nil {
			return err
		}
		if err := setField(rv.Field(i), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid parameter %q: %w", name, err)
		}
	}
	if err := validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value == "" {
			field.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if value == "" {
			field.SetUint(0)
			return nil
		}
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Bool:
		if value == "" {
			field.SetBool(false)
			return nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Interface, reflect.Slice, reflect.Map:
		field.Set(reflect.Zero(field.Type()))
		if value == "" {
			return nil
		}
		dec := json.NewDecoder(strings.NewReader(value))
		dec.UseNumber()
		if err := dec.Decode(field.Addr().Interface()); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("parameter %q is required", fe.Field()))
		case "near_account":
			msgs = append(msgs, fmt.Sprintf("parameter %q is not a valid account ID: %q", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("parameter %q failed %q validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

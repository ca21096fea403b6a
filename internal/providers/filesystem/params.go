package filesystem

import (
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/validate"
)

func requireString(params map[string]interface{}, op, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", errs.Newf(errs.InvalidArgument, op, "", "%s parameter required", name)
	}
	return v, nil
}

// requirePath is requireString for path-bearing fields
func requirePath(params map[string]interface{}, op, name string) (string, error) {
	v, err := requireString(params, op, name)
	if err != nil {
		return "", err
	}
	if err := validate.Path(name, v); err != nil {
		return "", errs.New(errs.InvalidArgument, op, "", err)
	}
	return v, nil
}

func optionalString(params map[string]interface{}, name string) string {
	v, _ := params[name].(string)
	return v
}

func optionalBool(params map[string]interface{}, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}

// requireStrings accepts []string and the []interface{} produced by JSON decoding
func requireStrings(params map[string]interface{}, op, name string) ([]string, error) {
	var out []string
	switch v := params[name].(type) {
	case []string:
		out = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errs.Newf(errs.InvalidArgument, op, "", "%s must contain only strings", name)
			}
			if err := validate.Path(name, s); err != nil {
				return nil, errs.New(errs.InvalidArgument, op, "", err)
			}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errs.Newf(errs.InvalidArgument, op, "", "%s parameter required", name)
	}
	return out, nil
}

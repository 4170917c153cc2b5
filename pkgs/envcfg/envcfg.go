// Package envcfg resolves build switches that may come from the environment,
// from the caller, or from a computed default.
package envcfg

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Keys of the switches bound to environment variables.
const (
	Translate = "cythonize"
	Debug     = "debug"
	Profile   = "profile_cython"
)

var bindings = map[string]string{
	Translate: "CYTHONIZE",
	Debug:     "DEBUG",
	Profile:   "PROFILE_CYTHON",
}

// InvalidBooleanError is returned when a value is not one of the recognized
// truthy or falsy tokens.
type InvalidBooleanError struct {
	Value string
}

func (e *InvalidBooleanError) Error() string {
	return fmt.Sprintf("invalid boolean string %q", e.Value)
}

// ParseBool converts "1", "on", "true", "yes" to true and "0", "off",
// "false", "no" to false. Case is ignored.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "on", "true", "yes":
		return true, nil
	case "0", "off", "false", "no":
		return false, nil
	}
	return false, &InvalidBooleanError{Value: s}
}

// ToBool is ParseBool for values that may already be booleans.
func ToBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		return ParseBool(v)
	}
	return false, &InvalidBooleanError{Value: fmt.Sprint(v)}
}

// -----------------------------------------------------------------------------

// Source reads switches from the process environment.
type Source struct {
	v *viper.Viper
}

// NewSource returns a Source bound to CYTHONIZE, DEBUG and PROFILE_CYTHON.
// A variable that is set to the empty string counts as present.
func NewSource() *Source {
	v := viper.New()
	v.AllowEmptyEnv(true)
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
	return &Source{v: v}
}

// Lookup reports the raw value of key and whether its variable is set.
func (s *Source) Lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

// Bool returns the boolean value of key, or def when its variable is unset.
func (s *Source) Bool(key string, def bool) (bool, error) {
	return Resolve(s.Layer(key), Value(&def))
}

// Layer returns the environment layer for key.
func (s *Source) Layer(key string) Layer {
	return func() (bool, bool, error) {
		raw, ok := s.Lookup(key)
		if !ok {
			return false, false, nil
		}
		val, err := ParseBool(raw)
		if err != nil {
			return false, true, fmt.Errorf("%s: %w", bindings[key], err)
		}
		return val, true, nil
	}
}

// -----------------------------------------------------------------------------

// Layer yields a value and whether this layer has one.
type Layer func() (val bool, ok bool, err error)

// Value is a layer holding an optional caller-supplied value.
func Value(v *bool) Layer {
	return func() (bool, bool, error) {
		if v == nil {
			return false, false, nil
		}
		return *v, true, nil
	}
}

// Computed is a layer that is always present.
func Computed(fn func() (bool, error)) Layer {
	return func() (bool, bool, error) {
		val, err := fn()
		return val, true, err
	}
}

// Resolve returns the value of the first layer that has one. Later layers
// are not evaluated. It returns false when no layer is present.
func Resolve(layers ...Layer) (bool, error) {
	for _, layer := range layers {
		val, ok, err := layer()
		if err != nil {
			return false, err
		}
		if ok {
			return val, nil
		}
	}
	return false, nil
}

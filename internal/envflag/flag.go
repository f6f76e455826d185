// Copyright 2026 The CUE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package envflag parses settings held in environment variables into
// structs.
package envflag

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Init uses Parse with the contents of the given environment variable as input.
func Init[T any](flags *T, envVar string) error {
	if err := Parse(flags, os.Getenv(envVar)); err != nil {
		return fmt.Errorf("cannot parse %s: %w", envVar, err)
	}
	return nil
}

// Parse initializes the fields of flags from their struct tags and from env,
// a comma-separated list of name=value settings.
//
// A field tag `envflag:"default:V"` sets the default value V; fields
// without it default to their zero value. Names are the lower-cased field
// names and are matched case insensitively. A boolean setting without a
// value, as in "name", means name=true; other kinds require a value.
// Booleans are parsed with [strconv.ParseBool] and integers with
// [strconv.Atoi].
//
// All malformed settings are reported; the remaining ones are applied.
func Parse[T any](flags *T, env string) error {
	fv := reflect.ValueOf(flags).Elem()
	fields, err := fieldsOf(fv)
	if err != nil {
		return err
	}

	var errs []error
	for _, elem := range strings.Split(env, ",") {
		// Empty elements allow settings to be joined unconditionally, as in
		// os.Getenv("EXPRTREE_DEBUG")+",strict".
		if elem == "" {
			continue
		}
		name, str, hasValue := strings.Cut(elem, "=")
		i, ok := fields[strings.ToLower(name)]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown flag %q (known flags: %s)", elem, strings.Join(Names(flags), ", ")))
			continue
		}
		field := fv.Field(i)
		switch {
		case hasValue:
			v, err := parseValue(name, field.Kind(), str)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			field.Set(reflect.ValueOf(v))
		case field.Kind() == reflect.Bool:
			field.SetBool(true)
		default:
			errs = append(errs, fmt.Errorf("value needed for %s flag %q", field.Kind(), name))
		}
	}
	return errors.Join(errs...)
}

// fieldsOf applies the default values of the fields of the struct v and
// returns the field index by flag name.
func fieldsOf(v reflect.Value) (map[string]int, error) {
	t := v.Type()
	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.ToLower(f.Name)
		fields[name] = i
		tag, ok := f.Tag.Lookup("envflag")
		if !ok {
			continue
		}
		key, def, _ := strings.Cut(tag, ":")
		if key != "default" {
			return nil, fmt.Errorf("unknown envflag tag %q", tag)
		}
		val, err := parseValue(name, f.Type.Kind(), def)
		if err != nil {
			return nil, err
		}
		v.Field(i).Set(reflect.ValueOf(val))
	}
	return fields, nil
}

// Names returns the sorted flag names accepted for T.
func Names[T any](*T) []string {
	t := reflect.TypeFor[T]()
	names := make([]string, t.NumField())
	for i := range names {
		names[i] = strings.ToLower(t.Field(i).Name)
	}
	sort.Strings(names)
	return names
}

func parseValue(name string, kind reflect.Kind, str string) (val any, err error) {
	switch kind {
	case reflect.Bool:
		val, err = strconv.ParseBool(str)
	case reflect.Int:
		val, err = strconv.Atoi(str)
	case reflect.String:
		val = str
	default:
		return nil, errInvalid{fmt.Errorf("unsupported kind %s", kind)}
	}
	if err != nil {
		return nil, errInvalid{fmt.Errorf("invalid %s value for %s: %v", kind, name, err)}
	}
	return val, nil
}

// ErrInvalid indicates a malformed input string.
var ErrInvalid = errors.New("invalid value")

type errInvalid struct{ error }

func (errInvalid) Is(err error) bool {
	return err == ErrInvalid
}

package descriptor

import (
	"fmt"
	"regexp"
	"strings"
)

// varPattern matches ${VAR} and ${VAR:-default} placeholders.
var varPattern = regexp.MustCompile(`\$\{(\w+)(?::-([^}]*))?\}`)

// Warning is a non-fatal resolution diagnostic, e.g. a default that was
// applied because the environment source had no entry.
type Warning struct {
	// Variable is the placeholder name.
	Variable string

	// Detail describes what happened.
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("${%s}: %s", w.Variable, w.Detail)
}

// resolver accumulates missing variables and warnings across one pass.
type resolver struct {
	vars     map[string]string
	missing  []string
	seen     map[string]bool
	warnings []Warning
}

// Resolve substitutes every placeholder in the Descriptor's string fields
// from vars, returning a fully-resolved copy. The input Descriptor is not
// mutated, so it can be re-resolved against a different environment source.
//
// Substitution is single-pass: no placeholder is evaluated in terms of
// another placeholder. A placeholder with no entry in vars and no default
// makes the whole resolve fail with *UnresolvedVariableError naming every
// missing variable. A placeholder resolved through its ${VAR:-default}
// default succeeds and records a Warning.
func Resolve(d *Descriptor, vars map[string]string) (*Descriptor, []Warning, error) {
	r := &resolver{vars: vars, seen: make(map[string]bool)}

	out := d.Clone()
	for _, svc := range out.Services {
		svc.Image = r.expand(svc.Image)
		if svc.Build != nil {
			svc.Build.Context = r.expand(svc.Build.Context)
			svc.Build.Dockerfile = r.expand(svc.Build.Dockerfile)
		}
		for i, port := range svc.Ports {
			svc.Ports[i] = r.expand(port)
		}
		for i, env := range svc.Environment {
			svc.Environment[i].Value = r.expand(env.Value)
		}
		for i, mount := range svc.Volumes {
			svc.Volumes[i] = r.expand(mount)
		}
		for i, dep := range svc.DependsOn {
			svc.DependsOn[i] = r.expand(dep)
		}
		svc.Extra = r.expandFields(svc.Extra)
	}
	for _, vol := range out.Volumes {
		vol.Driver = r.expand(vol.Driver)
		vol.Extra = r.expandFields(vol.Extra)
	}
	out.Extra = r.expandFields(out.Extra)

	if len(r.missing) > 0 {
		return nil, nil, &UnresolvedVariableError{Variables: r.missing}
	}

	return out, r.warnings, nil
}

// expand replaces placeholders in a single string. Missing variables are
// collected rather than failing fast so one pass reports them all.
func (r *resolver) expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		name := groups[1]
		// Variable names are word characters only, so ":-" can only be
		// the default separator.
		hasDefault := strings.Contains(match, ":-")

		if value, ok := r.vars[name]; ok {
			return value
		}

		if hasDefault {
			def := groups[2]
			r.warnings = append(r.warnings, Warning{
				Variable: name,
				Detail:   fmt.Sprintf("not set, using default %q", def),
			})
			return def
		}

		if !r.seen[name] {
			r.seen[name] = true
			r.missing = append(r.missing, name)
		}
		return match // Keep original if missing
	})
}

// expandFields applies expansion recursively to passthrough values.
func (r *resolver) expandFields(fields Fields) Fields {
	for i, fld := range fields {
		fields[i].Value = r.expandValue(fld.Value)
	}
	return fields
}

func (r *resolver) expandValue(value any) any {
	switch v := value.(type) {
	case string:
		return r.expand(v)
	case map[string]any:
		for k, item := range v {
			v[k] = r.expandValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = r.expandValue(item)
		}
		return v
	case []string:
		for i, item := range v {
			v[i] = r.expand(item)
		}
		return v
	default:
		return value
	}
}

package descriptor

import (
	"fmt"
	"strconv"
	"strings"
)

// Node colors for the dependency-graph traversal.
const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// Validate checks a fully-resolved Descriptor against the schema rules:
//
//	(a) service names are unique
//	(b) port mappings are host:container, both integers in 1..65535
//	(c) depends_on references name services present in the Descriptor
//	(d) the dependency graph is acyclic
//	(e) named volume mounts reference declared volumes (host paths exempt)
//
// The pass is exhaustive, not fail-fast: every violation found is collected
// into one *ValidationError. Returns nil when the Descriptor is valid.
func Validate(d *Descriptor) error {
	var violations []Violation

	violations = append(violations, checkUniqueNames(d)...)
	for _, svc := range d.Services {
		violations = append(violations, checkPorts(svc)...)
		violations = append(violations, checkDependencies(d, svc)...)
		violations = append(violations, checkMounts(d, svc)...)
	}
	violations = append(violations, checkCycles(d)...)

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func checkUniqueNames(d *Descriptor) []Violation {
	var violations []Violation

	seen := make(map[string]bool, len(d.Services))
	for _, svc := range d.Services {
		if seen[svc.Name] {
			violations = append(violations, Violation{
				Rule:    RuleDuplicateName,
				Subject: svc.Name,
				Detail:  "service name declared more than once",
			})
			continue
		}
		seen[svc.Name] = true
	}

	return violations
}

func checkPorts(svc *Service) []Violation {
	var violations []Violation

	for _, port := range svc.Ports {
		if msg := portSyntaxError(port); msg != "" {
			violations = append(violations, Violation{
				Rule:    RulePortSyntax,
				Subject: svc.Name,
				Detail:  fmt.Sprintf("port %q: %s", port, msg),
			})
		}
	}

	return violations
}

// portSyntaxError checks a host:container mapping, returning an empty string
// when it is well-formed.
func portSyntaxError(port string) string {
	host, container, ok := strings.Cut(port, ":")
	if !ok {
		return "expected host:container"
	}
	if strings.Contains(container, ":") {
		return "expected exactly one host and one container port"
	}
	for _, part := range []struct{ label, value string }{
		{"host port", host},
		{"container port", container},
	} {
		n, err := strconv.Atoi(part.value)
		if err != nil {
			return part.label + " is not an integer"
		}
		if n < 1 || n > 65535 {
			return part.label + " must be in 1..65535"
		}
	}
	return ""
}

func checkDependencies(d *Descriptor, svc *Service) []Violation {
	var violations []Violation

	for _, dep := range svc.DependsOn {
		if d.FindService(dep) == nil {
			violations = append(violations, Violation{
				Rule:    RuleUnknownDependency,
				Subject: svc.Name,
				Detail:  fmt.Sprintf("depends_on %q: no such service", dep),
			})
		}
	}

	return violations
}

// isHostPath reports whether a mount source is a host path rather than a
// named volume reference.
func isHostPath(source string) bool {
	return strings.HasPrefix(source, "/") ||
		strings.HasPrefix(source, "./") ||
		strings.HasPrefix(source, "../") ||
		strings.HasPrefix(source, "~")
}

func checkMounts(d *Descriptor, svc *Service) []Violation {
	var violations []Violation

	for _, mount := range svc.Volumes {
		source, rest, ok := strings.Cut(mount, ":")
		if !ok || rest == "" {
			violations = append(violations, Violation{
				Rule:    RuleVolumeSyntax,
				Subject: svc.Name,
				Detail:  fmt.Sprintf("mount %q: expected source:target", mount),
			})
			continue
		}

		if isHostPath(source) {
			continue
		}

		if d.FindVolume(source) == nil {
			violations = append(violations, Violation{
				Rule:    RuleUnknownVolume,
				Subject: svc.Name,
				Detail:  fmt.Sprintf("mount %q: volume %q is not declared", mount, source),
			})
		}
	}

	return violations
}

// frame tracks one node on the traversal stack and how many of its edges
// have been explored.
type frame struct {
	name string
	next int
}

// checkCycles detects dependency cycles with an iterative depth-first
// traversal over an arena of services indexed by name. Each node carries a
// finite-state color (unvisited, in-progress, done); an edge to an
// in-progress node is a back-edge, i.e. a cycle.
func checkCycles(d *Descriptor) []Violation {
	var violations []Violation

	colors := make(map[string]int, len(d.Services))

	for _, start := range d.Services {
		if colors[start.Name] != colorUnvisited {
			continue
		}

		stack := []frame{{name: start.Name}}
		colors[start.Name] = colorInProgress

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			svc := d.FindService(top.name)

			if svc == nil || top.next >= len(svc.DependsOn) {
				colors[top.name] = colorDone
				stack = stack[:len(stack)-1]
				continue
			}

			dep := svc.DependsOn[top.next]
			top.next++

			switch colors[dep] {
			case colorUnvisited:
				if d.FindService(dep) != nil {
					colors[dep] = colorInProgress
					stack = append(stack, frame{name: dep})
				}
			case colorInProgress:
				violations = append(violations, Violation{
					Rule:    RuleDependencyCycle,
					Subject: top.name,
					Detail:  fmt.Sprintf("dependency cycle: %s", formatCycle(stack, dep)),
				})
			}
		}
	}

	return violations
}

// formatCycle renders the portion of the traversal stack that forms the
// cycle, e.g. "a -> b -> a".
func formatCycle(stack []frame, dep string) string {
	start := 0
	for i, f := range stack {
		if f.name == dep {
			start = i
			break
		}
	}

	var names []string
	for _, f := range stack[start:] {
		names = append(names, f.name)
	}
	names = append(names, dep)
	return strings.Join(names, " -> ")
}

package descriptor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// inMemorySource names templates loaded from raw bytes in ParseErrors.
const inMemorySource = "<template>"

// Load parses template text into a Descriptor. Placeholders stay unresolved.
// Returns a *ParseError when the text does not conform to the template
// grammar. Duplicate service names are loaded as-is so Validate can report
// the uniqueness violation with full context.
func Load(data []byte) (*Descriptor, error) {
	return load(data, inMemorySource, false)
}

// LoadFile reads and parses a template file.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Msg: "read template", Err: err}
	}
	return load(data, path, false)
}

// LoadOverlay parses a partial template for merging onto a base. Overlay
// services may omit image and build; the merged result is still subject to
// the full grammar when the base loads strictly.
func LoadOverlay(data []byte) (*Descriptor, error) {
	return load(data, inMemorySource, true)
}

// LoadOverlayFile reads and parses a partial overlay template.
func LoadOverlayFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Msg: "read overlay", Err: err}
	}
	return load(data, path, true)
}

func load(data []byte, source string, partial bool) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Source: source, Msg: "malformed YAML", Err: err}
	}

	if len(doc.Content) == 0 {
		return nil, &ParseError{Source: source, Msg: "empty template"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Source: source, Line: root.Line, Msg: "template root must be a mapping"}
	}

	d := &Descriptor{}
	for i := 0; i < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		switch key.Value {
		case "version":
			d.Version = value.Value
		case "services":
			if err := loadServices(d, value, source, partial); err != nil {
				return nil, err
			}
		case "volumes":
			if err := loadVolumes(d, value, source); err != nil {
				return nil, err
			}
		default:
			var raw any
			if err := value.Decode(&raw); err != nil {
				return nil, &ParseError{Source: source, Line: value.Line, Msg: fmt.Sprintf("decode %q", key.Value), Err: err}
			}
			d.Extra = append(d.Extra, Field{Key: key.Value, Value: raw})
		}
	}

	return d, nil
}

func loadServices(d *Descriptor, node *yaml.Node, source string, partial bool) error {
	if node.Kind != yaml.MappingNode {
		return &ParseError{Source: source, Line: node.Line, Msg: "services must be a mapping of name to service definition"}
	}

	for i := 0; i < len(node.Content); i += 2 {
		name, body := node.Content[i], node.Content[i+1]

		svc, err := loadService(name.Value, body, source, partial)
		if err != nil {
			return err
		}
		d.Services = append(d.Services, svc)
	}

	return nil
}

func loadService(name string, node *yaml.Node, source string, partial bool) (*Service, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q must be a mapping", name)}
	}

	svc := &Service{Name: name}
	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		switch key.Value {
		case "image":
			svc.Image = value.Value
		case "build":
			build, err := loadBuild(name, value, source)
			if err != nil {
				return nil, err
			}
			svc.Build = build
		case "ports":
			ports, err := loadStringList(value, source, fmt.Sprintf("service %q: ports", name))
			if err != nil {
				return nil, err
			}
			svc.Ports = ports
		case "environment":
			env, err := loadEnvironment(name, value, source)
			if err != nil {
				return nil, err
			}
			svc.Environment = env
		case "volumes":
			mounts, err := loadStringList(value, source, fmt.Sprintf("service %q: volumes", name))
			if err != nil {
				return nil, err
			}
			svc.Volumes = mounts
		case "depends_on":
			deps, err := loadStringList(value, source, fmt.Sprintf("service %q: depends_on", name))
			if err != nil {
				return nil, err
			}
			svc.DependsOn = deps
		default:
			var raw any
			if err := value.Decode(&raw); err != nil {
				return nil, &ParseError{Source: source, Line: value.Line, Msg: fmt.Sprintf("service %q: decode %q", name, key.Value), Err: err}
			}
			svc.Extra = append(svc.Extra, Field{Key: key.Value, Value: raw})
		}
	}

	// image and build are mutually exclusive, and one is required. Overlay
	// services are partial and may carry neither.
	if svc.Image != "" && svc.Build != nil {
		return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: image and build are mutually exclusive", name)}
	}
	if svc.Image == "" && svc.Build == nil && !partial {
		return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: requires image or build", name)}
	}

	return svc, nil
}

func loadBuild(name string, node *yaml.Node, source string) (*BuildSpec, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		// Shorthand: build context path only.
		return &BuildSpec{Context: node.Value}, nil
	case yaml.MappingNode:
		var build BuildSpec
		shadow := struct {
			Context    string `yaml:"context"`
			Dockerfile string `yaml:"dockerfile"`
		}{}
		if err := node.Decode(&shadow); err != nil {
			return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: decode build", name), Err: err}
		}
		build.Context = shadow.Context
		build.Dockerfile = shadow.Dockerfile
		if build.Context == "" {
			return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: build requires a context", name)}
		}
		return &build, nil
	default:
		return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: build must be a path or a mapping", name)}
	}
}

// loadEnvironment accepts both the mapping form (NAME: value) and the list
// form (NAME=value), normalizing to ordered bindings.
func loadEnvironment(name string, node *yaml.Node, source string) ([]EnvVar, error) {
	switch node.Kind {
	case yaml.MappingNode:
		env := make([]EnvVar, 0, len(node.Content)/2)
		for i := 0; i < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return nil, &ParseError{Source: source, Line: value.Line, Msg: fmt.Sprintf("service %q: environment %q must be a scalar", name, key.Value)}
			}
			env = append(env, EnvVar{Name: key.Value, Value: value.Value})
		}
		return env, nil
	case yaml.SequenceNode:
		env := make([]EnvVar, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, &ParseError{Source: source, Line: item.Line, Msg: fmt.Sprintf("service %q: environment entries must be NAME=value strings", name)}
			}
			k, v, ok := strings.Cut(item.Value, "=")
			if !ok || k == "" {
				return nil, &ParseError{Source: source, Line: item.Line, Msg: fmt.Sprintf("service %q: malformed environment entry %q", name, item.Value)}
			}
			env = append(env, EnvVar{Name: k, Value: v})
		}
		return env, nil
	default:
		return nil, &ParseError{Source: source, Line: node.Line, Msg: fmt.Sprintf("service %q: environment must be a mapping or a list", name)}
	}
}

func loadStringList(node *yaml.Node, source, context string) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Source: source, Line: node.Line, Msg: context + " must be a list"}
	}

	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, &ParseError{Source: source, Line: item.Line, Msg: context + " entries must be strings"}
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func loadVolumes(d *Descriptor, node *yaml.Node, source string) error {
	if node.Kind != yaml.MappingNode {
		return &ParseError{Source: source, Line: node.Line, Msg: "volumes must be a mapping of name to volume definition"}
	}

	for i := 0; i < len(node.Content); i += 2 {
		name, body := node.Content[i], node.Content[i+1]

		vol := &Volume{Name: name.Value}
		switch body.Kind {
		case yaml.ScalarNode:
			// "postgres_data:" with no body - declarative, default driver.
			if body.Value != "" && body.Tag != "!!null" {
				return &ParseError{Source: source, Line: body.Line, Msg: fmt.Sprintf("volume %q must be a mapping or empty", name.Value)}
			}
		case yaml.MappingNode:
			for j := 0; j < len(body.Content); j += 2 {
				key, value := body.Content[j], body.Content[j+1]
				switch key.Value {
				case "driver":
					vol.Driver = value.Value
				case "external":
					if err := value.Decode(&vol.External); err != nil {
						return &ParseError{Source: source, Line: value.Line, Msg: fmt.Sprintf("volume %q: external must be a boolean", name.Value), Err: err}
					}
				default:
					var raw any
					if err := value.Decode(&raw); err != nil {
						return &ParseError{Source: source, Line: value.Line, Msg: fmt.Sprintf("volume %q: decode %q", name.Value, key.Value), Err: err}
					}
					vol.Extra = append(vol.Extra, Field{Key: key.Value, Value: raw})
				}
			}
		default:
			return &ParseError{Source: source, Line: body.Line, Msg: fmt.Sprintf("volume %q must be a mapping or empty", name.Value)}
		}

		d.Volumes = append(d.Volumes, vol)
	}

	return nil
}

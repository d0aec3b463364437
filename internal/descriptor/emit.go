package descriptor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Emit serializes a validated Descriptor to manifest YAML. Services, volumes,
// environment bindings, and passthrough keys keep their template order, so
// repeat renders of the same inputs are byte-identical.
//
// Emit is a pure function of the Descriptor. A *EmitError means a value was
// structurally unrepresentable, which cannot happen for a Descriptor that
// passed Validate.
func Emit(d *Descriptor) ([]byte, error) {
	root, err := d.yamlNode()
	if err != nil {
		return nil, &EmitError{Err: err}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, &EmitError{Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &EmitError{Err: err}
	}

	return buf.Bytes(), nil
}

// EmitFile emits the Descriptor and writes it to path, creating parent
// directories as needed.
func EmitFile(d *Descriptor, path string) error {
	data, err := Emit(d)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (d *Descriptor) yamlNode() (*yaml.Node, error) {
	root := mappingNode()

	if d.Version != "" {
		appendPair(root, "version", strNode(d.Version))
	}

	if len(d.Services) > 0 {
		services := mappingNode()
		for _, svc := range d.Services {
			node, err := svc.yamlNode()
			if err != nil {
				return nil, fmt.Errorf("service %q: %w", svc.Name, err)
			}
			appendPair(services, svc.Name, node)
		}
		appendPair(root, "services", services)
	}

	if len(d.Volumes) > 0 {
		volumes := mappingNode()
		for _, vol := range d.Volumes {
			node, err := vol.yamlNode()
			if err != nil {
				return nil, fmt.Errorf("volume %q: %w", vol.Name, err)
			}
			appendPair(volumes, vol.Name, node)
		}
		appendPair(root, "volumes", volumes)
	}

	if err := appendFields(root, d.Extra); err != nil {
		return nil, err
	}

	return root, nil
}

func (s *Service) yamlNode() (*yaml.Node, error) {
	node := mappingNode()

	if s.Image != "" {
		appendPair(node, "image", strNode(s.Image))
	}
	if s.Build != nil {
		build := mappingNode()
		appendPair(build, "context", strNode(s.Build.Context))
		if s.Build.Dockerfile != "" {
			appendPair(build, "dockerfile", strNode(s.Build.Dockerfile))
		}
		appendPair(node, "build", build)
	}
	if len(s.Ports) > 0 {
		appendPair(node, "ports", seqNode(s.Ports))
	}
	if len(s.Environment) > 0 {
		env := mappingNode()
		for _, binding := range s.Environment {
			appendPair(env, binding.Name, strNode(binding.Value))
		}
		appendPair(node, "environment", env)
	}
	if len(s.Volumes) > 0 {
		appendPair(node, "volumes", seqNode(s.Volumes))
	}
	if len(s.DependsOn) > 0 {
		appendPair(node, "depends_on", seqNode(s.DependsOn))
	}

	if err := appendFields(node, s.Extra); err != nil {
		return nil, err
	}

	return node, nil
}

func (v *Volume) yamlNode() (*yaml.Node, error) {
	if v.Driver == "" && !v.External && len(v.Extra) == 0 {
		// Bare declaration: "postgres_data:".
		return nullNode(), nil
	}

	node := mappingNode()
	if v.Driver != "" {
		appendPair(node, "driver", strNode(v.Driver))
	}
	if v.External {
		external := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
		appendPair(node, "external", external)
	}
	if err := appendFields(node, v.Extra); err != nil {
		return nil, err
	}
	return node, nil
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: ""}
}

func seqNode(items []string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		node.Content = append(node.Content, strNode(item))
	}
	return node
}

func appendPair(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, strNode(key), value)
}

func appendFields(mapping *yaml.Node, fields Fields) error {
	for _, fld := range fields {
		var value yaml.Node
		if err := value.Encode(fld.Value); err != nil {
			return fmt.Errorf("encode %q: %w", fld.Key, err)
		}
		appendPair(mapping, fld.Key, &value)
	}
	return nil
}

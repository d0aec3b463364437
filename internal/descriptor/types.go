package descriptor

// Descriptor is the in-memory form of a deployment template: an ordered set
// of services, an ordered set of named volumes, and a schema version tag.
// Order follows the source template so emitted output is deterministic.
type Descriptor struct {
	// Version is the schema version tag (e.g., "3.8"). Optional.
	Version string

	// Services in template order.
	Services []*Service

	// Volumes in template order.
	Volumes []*Volume

	// Extra preserves top-level keys the pipeline does not model
	// (networks, x-* extensions, ...).
	Extra Fields
}

// Service is one named, independently deployable process definition.
// Exactly one of Image or Build is set (enforced at load time).
type Service struct {
	// Name is the service key in the template's services mapping.
	Name string

	// Image is a reference to a pre-built image (e.g., "postgres:13").
	Image string

	// Build describes how to build the image instead.
	Build *BuildSpec

	// Ports are host:container mappings, in template order.
	Ports []string

	// Environment bindings in template order. Values may hold unresolved
	// ${VAR} placeholders until Resolve runs.
	Environment []EnvVar

	// Volumes are source:target mount specs, in template order.
	Volumes []string

	// DependsOn names services that must be started first.
	DependsOn []string

	// Extra preserves keys the pipeline does not model (restart, command,
	// healthcheck, ...) so round-trips are lossless.
	Extra Fields
}

// BuildSpec is a build context plus an optional descriptor filename.
// The template may use the scalar shorthand ("build: .") or the mapping form.
type BuildSpec struct {
	// Context is the build context path.
	Context string

	// Dockerfile is the descriptor filename within the context. Optional.
	Dockerfile string
}

// Volume is a named persistent storage declaration, independent of any single
// service's lifecycle. Purely declarative; the volume subsystem owns the data.
type Volume struct {
	// Name is the volume key in the template's volumes mapping.
	Name string

	// Driver is optional driver metadata (e.g., "local").
	Driver string

	// External marks a volume managed outside this descriptor.
	External bool

	// Extra preserves driver options and other unmodeled keys.
	Extra Fields
}

// EnvVar is a single environment binding. Order matters for emission.
type EnvVar struct {
	Name  string
	Value string
}

// Field is one unmodeled template key, preserved in source order.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered list of unmodeled keys.
type Fields []Field

// Get returns the value for key and whether it is present.
func (f Fields) Get(key string) (any, bool) {
	for _, fld := range f {
		if fld.Key == key {
			return fld.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key, or appends if absent.
func (f Fields) Set(key string, value any) Fields {
	for i, fld := range f {
		if fld.Key == key {
			f[i].Value = value
			return f
		}
	}
	return append(f, Field{Key: key, Value: value})
}

// FindService returns the service with the given name, or nil.
func (d *Descriptor) FindService(name string) *Service {
	for _, svc := range d.Services {
		if svc.Name == name {
			return svc
		}
	}
	return nil
}

// FindVolume returns the volume with the given name, or nil.
func (d *Descriptor) FindVolume(name string) *Volume {
	for _, vol := range d.Volumes {
		if vol.Name == name {
			return vol
		}
	}
	return nil
}

// Clone returns a deep copy of the Descriptor. Resolve and Merge operate on
// clones so the original stays reusable.
func (d *Descriptor) Clone() *Descriptor {
	out := &Descriptor{Version: d.Version, Extra: d.Extra.clone()}
	for _, svc := range d.Services {
		out.Services = append(out.Services, svc.clone())
	}
	for _, vol := range d.Volumes {
		out.Volumes = append(out.Volumes, vol.clone())
	}
	return out
}

func (s *Service) clone() *Service {
	out := &Service{
		Name:        s.Name,
		Image:       s.Image,
		Ports:       append([]string(nil), s.Ports...),
		Environment: append([]EnvVar(nil), s.Environment...),
		Volumes:     append([]string(nil), s.Volumes...),
		DependsOn:   append([]string(nil), s.DependsOn...),
		Extra:       s.Extra.clone(),
	}
	if s.Build != nil {
		b := *s.Build
		out.Build = &b
	}
	return out
}

func (v *Volume) clone() *Volume {
	return &Volume{
		Name:     v.Name,
		Driver:   v.Driver,
		External: v.External,
		Extra:    v.Extra.clone(),
	}
}

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for i, fld := range f {
		out[i] = Field{Key: fld.Key, Value: deepCopy(fld.Value)}
	}
	return out
}

// deepCopy creates a deep copy of decoded YAML values.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		// Primitive types are immutable, return as-is
		return value
	}
}

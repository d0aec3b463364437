package descriptor

// Merge deep-merges an overlay Descriptor onto a base and returns a new
// Descriptor; neither input is mutated. This is how one template splits into
// development and production variants: the base carries the shared shape, the
// overlay carries per-environment differences.
//
// Merge semantics follow the service shape:
//   - services and volumes match by name; overlay-only entries append after
//     the base entries, keeping order stable
//   - image/build: an overlay image replaces a base build and vice versa,
//     preserving the mutual-exclusion invariant
//   - environment merges by variable name, overlay wins, new bindings append
//   - depends_on is a set union
//   - ports and mounts replace wholesale when the overlay sets them
//   - passthrough keys deep-merge for mappings, replace otherwise
func Merge(base, overlay *Descriptor) *Descriptor {
	out := base.Clone()

	if overlay.Version != "" {
		out.Version = overlay.Version
	}

	for _, overlaySvc := range overlay.Services {
		baseSvc := out.FindService(overlaySvc.Name)
		if baseSvc == nil {
			out.Services = append(out.Services, overlaySvc.clone())
			continue
		}
		mergeService(baseSvc, overlaySvc)
	}

	for _, overlayVol := range overlay.Volumes {
		baseVol := out.FindVolume(overlayVol.Name)
		if baseVol == nil {
			out.Volumes = append(out.Volumes, overlayVol.clone())
			continue
		}
		mergeVolume(baseVol, overlayVol)
	}

	out.Extra = mergeFields(out.Extra, overlay.Extra)

	return out
}

func mergeService(base, overlay *Service) {
	if overlay.Image != "" {
		base.Image = overlay.Image
		base.Build = nil
	}
	if overlay.Build != nil {
		b := *overlay.Build
		base.Build = &b
		base.Image = ""
	}

	if overlay.Ports != nil {
		base.Ports = append([]string(nil), overlay.Ports...)
	}
	if overlay.Volumes != nil {
		base.Volumes = append([]string(nil), overlay.Volumes...)
	}

	base.Environment = mergeEnvironment(base.Environment, overlay.Environment)
	base.DependsOn = stringUnion(base.DependsOn, overlay.DependsOn)
	base.Extra = mergeFields(base.Extra, overlay.Extra)
}

func mergeVolume(base, overlay *Volume) {
	if overlay.Driver != "" {
		base.Driver = overlay.Driver
	}
	if overlay.External {
		base.External = true
	}
	base.Extra = mergeFields(base.Extra, overlay.Extra)
}

// mergeEnvironment merges overlay bindings by name. Base order is preserved;
// overlay-only bindings append in overlay order.
func mergeEnvironment(base, overlay []EnvVar) []EnvVar {
	out := append([]EnvVar(nil), base...)

	for _, binding := range overlay {
		replaced := false
		for i := range out {
			if out[i].Name == binding.Name {
				out[i].Value = binding.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, binding)
		}
	}

	return out
}

// stringUnion returns the set union of two slices, first-seen order.
func stringUnion(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// mergeFields merges passthrough keys: mappings merge recursively, everything
// else the overlay replaces.
func mergeFields(base, overlay Fields) Fields {
	out := base.clone()

	for _, fld := range overlay {
		existing, ok := out.Get(fld.Key)
		if !ok {
			out = append(out, Field{Key: fld.Key, Value: deepCopy(fld.Value)})
			continue
		}

		baseMap, baseIsMap := existing.(map[string]any)
		overlayMap, overlayIsMap := fld.Value.(map[string]any)
		if baseIsMap && overlayIsMap {
			out = out.Set(fld.Key, deepMergeMap(baseMap, overlayMap))
			continue
		}

		out = out.Set(fld.Key, deepCopy(fld.Value))
	}

	return out
}

// deepMergeMap recursively merges overlay into a copy of base.
func deepMergeMap(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}

	for key, overlayValue := range overlay {
		baseValue, exists := result[key]
		if !exists {
			result[key] = deepCopy(overlayValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = deepMergeMap(baseMap, overlayMap)
			continue
		}

		result[key] = deepCopy(overlayValue)
	}

	return result
}

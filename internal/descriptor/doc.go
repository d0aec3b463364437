// Package descriptor implements the render pipeline for multi-service
// deployment descriptors: load, resolve, validate, emit.
//
// A template is compose-style YAML describing services, their volumes, and
// their dependency edges, with ${VAR} placeholders in string fields. The
// pipeline stages run strictly in sequence:
//
//   - Load parses the template into a Descriptor, placeholders intact
//   - Resolve substitutes placeholders from an environment source
//   - Validate checks the resolved Descriptor against the schema rules
//   - Emit serializes the Descriptor back to deterministic YAML
//
// Each stage is a pure function of its input. Resolve returns a copy, so one
// loaded Descriptor can be re-rendered against several environment sources
// (the development/production split).
//
// # Template structure
//
//	version: "3.8"
//	services:
//	  app:
//	    build: .
//	    ports: ["8000:8000"]
//	    environment:
//	      DATABASE_URL: ${DATABASE_URL}
//	    depends_on: [db]
//	  db:
//	    image: postgres:13
//	    volumes:
//	      - postgres_data:/var/lib/postgresql/data
//	volumes:
//	  postgres_data:
//
// Service and volume order is preserved from the template through to the
// emitted manifest, so repeat renders are byte-identical and diff-friendly.
package descriptor

package core

// Expand resolves the declarative matrix into one JobSpec per driving
// dimension value, in declared value order.
//
// Resolution per job: start from the global defaults, apply every unkeyed
// override record in declaration order, then every keyed record whose key
// matches the job, also in declaration order. A later write wins a field
// conflict; a field no record touches keeps its prior value. Environment
// overlays layer the same way, key by key.
//
// All authoring mistakes surface here, before any job runs: an empty
// driving dimension, an override key naming no driving value, a condition
// referencing a field outside the schema, a step bound to an unknown
// collaborator.
func Expand(p *Pipeline) ([]JobSpec, error) {
	if len(p.Matrix.Dimensions) == 0 {
		return nil, configErrorf("", "", "matrix declares no dimensions")
	}
	driving := p.Matrix.Dimensions[0]
	if len(driving.Values) == 0 {
		return nil, configErrorf("", driving.Name, "driving dimension has no values")
	}

	values := make(map[string]bool, len(driving.Values))
	for _, v := range driving.Values {
		values[v] = true
	}
	for _, rec := range p.Matrix.Include {
		if rec.Key != "" && !values[rec.Key] {
			return nil, configErrorf("", driving.Name, "override key %q matches no declared value", rec.Key)
		}
	}

	schema := fieldSchema(p)
	steps, err := resolveSteps(p.Steps, schema)
	if err != nil {
		return nil, err
	}

	jobs := make([]JobSpec, 0, len(driving.Values))
	for _, val := range driving.Values {
		fields := make(map[string]string, len(schema))
		for name := range schema {
			fields[name] = ""
		}
		for k, v := range p.Defaults {
			fields[k] = v
		}
		fields[driving.Name] = val

		env := map[string]string{}
		for _, rec := range p.Matrix.Include {
			if rec.Key == "" {
				applyRecord(fields, env, rec)
			}
		}
		for _, rec := range p.Matrix.Include {
			if rec.Key == val {
				applyRecord(fields, env, rec)
			}
		}
		jobs = append(jobs, JobSpec{ID: val, Fields: fields, Env: env, Steps: steps})
	}
	return jobs, nil
}

// fieldSchema is the set of every field name a job can carry: the global
// defaults, every field any override record sets, and the dimension names
// themselves.
func fieldSchema(p *Pipeline) map[string]bool {
	schema := map[string]bool{}
	for name := range p.Defaults {
		schema[name] = true
	}
	for _, rec := range p.Matrix.Include {
		for name := range rec.Fields {
			schema[name] = true
		}
	}
	for _, d := range p.Matrix.Dimensions {
		schema[d.Name] = true
	}
	return schema
}

func applyRecord(fields, env map[string]string, rec OverrideRecord) {
	for k, v := range rec.Fields {
		fields[k] = v
	}
	for k, v := range rec.Env {
		env[k] = v
	}
}

// resolveSteps turns the declarative step templates into resolved steps,
// parsing each condition once and checking it against the field schema.
func resolveSteps(templates []StepTemplate, schema map[string]bool) ([]Step, error) {
	steps := make([]Step, 0, len(templates))
	for _, t := range templates {
		cond, err := ParseCondition(t.If)
		if err != nil {
			return nil, err
		}
		if cond != nil && !schema[cond.Field] {
			return nil, configErrorf("", cond.Field, "condition on step %q references an unknown field", t.Name)
		}
		if err := checkBinding(t); err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Name:  t.Name,
			Uses:  t.Uses,
			With:  t.With,
			Run:   t.Run,
			If:    cond,
			Shell: t.Shell,
			Env:   t.Env,
		})
	}
	return steps, nil
}

func checkBinding(t StepTemplate) error {
	switch t.Uses {
	case UsesToolchain:
		if t.With != "build" && t.With != "test" {
			return configErrorf("", "", "step %q: toolchain command must be build or test, got %q", t.Name, t.With)
		}
		return nil
	case UsesCheckout, UsesPackages, UsesLint:
		return nil
	case "":
		if t.Run == "" {
			return configErrorf("", "", "step %q has neither a collaborator binding nor a command", t.Name)
		}
		return nil
	default:
		return configErrorf("", "", "step %q uses unknown collaborator %q", t.Name, t.Uses)
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

type rawParameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
}

type rawOperation struct {
	Parameters []rawParameter       `yaml:"parameters"`
	Responses  map[string]yaml.Node `yaml:"responses"`
}

// rawSpec keeps each path item as nodes so path-level keys like parameters do
// not have to decode as operations.
type rawSpec struct {
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

// operation is the part of an OpenAPI operation a client depends on.
type operation struct {
	Responses map[string]struct{}
	// Required holds "in:name" for every required parameter.
	Required map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

func loadSpecFile(path string) (parsedSpec, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is a CLI argument
	if err != nil {
		return parsedSpec{}, err
	}
	return parseSpec(raw)
}

func parseSpec(raw []byte) (parsedSpec, error) {
	var doc rawSpec
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}
	if doc.Paths == nil {
		return parsedSpec{}, errors.New("missing top-level paths field")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation, len(doc.Paths))}
	for path, item := range doc.Paths {
		var shared []rawParameter
		if node, ok := item["parameters"]; ok {
			if err := node.Decode(&shared); err != nil {
				return parsedSpec{}, fmt.Errorf("%s parameters: %w", path, err)
			}
		}

		ops := make(map[string]operation)
		for key, node := range item {
			method := strings.ToLower(key)
			if !slices.Contains(httpMethods, method) {
				continue
			}
			var op rawOperation
			if err := node.Decode(&op); err != nil {
				return parsedSpec{}, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			ops[method] = op.normalize(shared)
		}
		if len(ops) > 0 {
			spec.Paths[path] = ops
		}
	}
	return spec, nil
}

// normalize merges path-level parameters, which every operation inherits.
func (op rawOperation) normalize(shared []rawParameter) operation {
	out := operation{
		Responses: make(map[string]struct{}, len(op.Responses)),
		Required:  make(map[string]struct{}),
	}
	for code := range op.Responses {
		out.Responses[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	for _, p := range slices.Concat(shared, op.Parameters) {
		if p.Required {
			out.Required[p.In+":"+p.Name] = struct{}{}
		}
	}
	return out
}

// compare lists changes in revision that would break clients of base: a path,
// operation or documented response that disappeared, or a parameter that
// became required.
func compare(base, revision parsedSpec) []string {
	var issues []string
	report := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			report("removed path: %s", path)
			continue
		}
		for method, baseOp := range baseOps {
			verb := strings.ToUpper(method)
			revOp, ok := revOps[method]
			if !ok {
				report("removed operation: %s %s", verb, path)
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					report("removed response code: %s %s -> %s", verb, path, strings.ToUpper(code))
				}
			}
			for param := range revOp.Required {
				if _, ok := baseOp.Required[param]; !ok {
					report("new required parameter: %s %s -> %s", verb, path, param)
				}
			}
		}
	}

	slices.Sort(issues)
	return issues
}

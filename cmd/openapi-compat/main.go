// Command openapi-compat exports the API's swagger document as YAML and checks
// that a revised document stays backward compatible with a base one.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: openapi-compat <export|check> [flags]")
		return 2
	}

	switch args[0] {
	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		fs.SetOutput(stderr)
		out := fs.String("out", "", "output path (stdout when empty)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if err := exportYAML(*out, stdout); err != nil {
			fmt.Fprintf(stderr, "export failed: %v\n", err)
			return 1
		}
		return 0

	case "check":
		fs := flag.NewFlagSet("check", flag.ContinueOnError)
		fs.SetOutput(stderr)
		basePath := fs.String("base", "", "base swagger.yaml path")
		revisionPath := fs.String("revision", "", "revision swagger.yaml path")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if strings.TrimSpace(*basePath) == "" || strings.TrimSpace(*revisionPath) == "" {
			fmt.Fprintln(stderr, "usage: openapi-compat check -base <path> -revision <path>")
			return 2
		}
		return check(*basePath, *revisionPath, stdout, stderr)

	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return 2
	}
}

func check(basePath, revisionPath string, stdout, stderr io.Writer) int {
	baseSpec, err := loadSpecFile(basePath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load base spec: %v\n", err)
		return 1
	}
	revisionSpec, err := loadSpecFile(revisionPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load revision spec: %v\n", err)
		return 1
	}

	issues := compare(baseSpec, revisionSpec)
	if len(issues) > 0 {
		fmt.Fprintln(stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(stderr, "- %s\n", issue)
		}
		return 1
	}

	fmt.Fprintln(stdout, "openapi compatibility check passed")
	return 0
}

// Package ci detects the pipeline runner and implements its parameter
// naming and step-output conventions.
package ci

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
)

type Environment int

const (
	GitHubActions Environment = iota + 1
	AzurePipelines
)

const (
	githubMarker = "GITHUB_ACTIONS"
	azureMarker  = "TF_BUILD"
	githubOutput = "GITHUB_OUTPUT"
	githubPrefix = "INPUT_"
)

var ErrAmbiguousEnvironment = errors.New("unable to unambiguously infer the current runtime environment")

func (e Environment) String() string {
	switch e {
	case GitHubActions:
		return "Github Actions"
	case AzurePipelines:
		return "Azure Pipelines"
	default:
		return "unknown"
	}
}

// Detect returns the runner the process executes in. Exactly one of the
// marker variables must be set.
func Detect(lookup env.LookupFunc) (Environment, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	gh, _ := lookup(githubMarker)
	az, _ := lookup(azureMarker)
	onGitHub := gh == "true"
	onAzure := az == "True"

	switch {
	case onGitHub && !onAzure:
		return GitHubActions, nil
	case onAzure && !onGitHub:
		return AzurePipelines, nil
	default:
		return 0, domain.ConfigError("detect ci environment",
			fmt.Errorf("%w (%s=%q, %s=%q)", ErrAmbiguousEnvironment, githubMarker, gh, azureMarker, az))
	}
}

// ParamName maps a parameter key to the variable the runner exposes it as.
// GitHub prefixes action inputs with INPUT_; Azure passes them through as-is.
func (e Environment) ParamName(key string) string {
	name := strings.ToUpper(key)
	if e == GitHubActions {
		return githubPrefix + name
	}
	return name
}

// WriteOutput publishes key=value as a step output. The line is appended to
// the file named by GITHUB_OUTPUT whenever that variable is set; Azure also
// receives a task.setvariable logging command on stdout.
func (e Environment) WriteOutput(stdout io.Writer, lookup env.LookupFunc, key, value string) error {
	switch e {
	case GitHubActions, AzurePipelines:
	default:
		return fmt.Errorf("unsupported environment: %d", int(e))
	}

	if path, ok := env.Param(lookup, githubOutput); ok {
		if err := appendOutput(path, key, value); err != nil {
			return err
		}
	}
	if e == AzurePipelines && stdout != nil {
		_, err := fmt.Fprintf(stdout, "##vso[task.setvariable variable=%s;isOutput=true]%s\n", key, value)
		return err
	}
	return nil
}

func appendOutput(path, key, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.FilesystemError("open step output", err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		_ = f.Close()
		return domain.FilesystemError("write step output", err)
	}
	if err := f.Close(); err != nil {
		return domain.FilesystemError("close step output", err)
	}
	return nil
}

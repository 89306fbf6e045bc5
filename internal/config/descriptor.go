package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/ci"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
)

const (
	DescriptorFile   = "config.yaml"
	RequirementsFile = "requirements.txt"
)

// RequiredKeys lists the config.yaml keys every app must declare, in the
// order they are checked.
var RequiredKeys = []string{"name", "version", "description", "creator", "entrypoint", "published", "external_id"}

// LoadAppDescriptor reads the app folder named by the app_folder parameter.
func LoadAppDescriptor(runner ci.Environment, lookup env.LookupFunc) (domain.AppDescriptor, error) {
	name := runner.ParamName(ParamAppFolder)
	folder, ok := env.Param(lookup, name)
	if !ok {
		return domain.AppDescriptor{}, domain.ConfigError("load app descriptor", fmt.Errorf("%s is required", name))
	}
	return ParseAppFolder(folder)
}

// ParseAppFolder validates folder and decodes its config.yaml.
func ParseAppFolder(folder string) (domain.AppDescriptor, error) {
	const op = "load app descriptor"

	info, err := os.Stat(folder)
	if err != nil {
		return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("app_folder %q: %w", folder, err))
	}
	if !info.IsDir() {
		return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("app_folder %q is not a directory", folder))
	}

	raw, err := os.ReadFile(filepath.Join(folder, DescriptorFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("missing '%s' file in app folder: '%s'", DescriptorFile, folder))
		}
		return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("read %s: %w", DescriptorFile, err))
	}

	fields, err := decodeMapping(raw)
	if err != nil {
		return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("invalid '%s' file in app folder: '%s': %w", DescriptorFile, folder, err))
	}
	for _, key := range RequiredKeys {
		if _, ok := fields[key]; !ok {
			return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("missing '%s' in '%s' file in app folder: '%s'", key, DescriptorFile, folder))
		}
	}

	app, err := descriptorFromFields(fields)
	if err != nil {
		return domain.AppDescriptor{}, domain.ConfigError(op, fmt.Errorf("%s: %w", DescriptorFile, err))
	}
	app.Folder = folder

	reqInfo, err := os.Stat(filepath.Join(folder, RequirementsFile))
	if err != nil || !reqInfo.Mode().IsRegular() {
		if err == nil {
			err = os.ErrNotExist
		}
		return domain.AppDescriptor{}, domain.FilesystemError(op, fmt.Errorf("missing '%s' file in app folder: '%s': %w", RequirementsFile, folder, err))
	}

	if err := app.Validate(); err != nil {
		return domain.AppDescriptor{}, domain.ConfigError(op, err)
	}
	return app, nil
}

func decodeMapping(raw []byte) (map[string]*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("top level must be a mapping")
	}
	mapping := doc.Content[0]
	fields := make(map[string]*yaml.Node, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fields[mapping.Content[i].Value] = mapping.Content[i+1]
	}
	return fields, nil
}

func descriptorFromFields(fields map[string]*yaml.Node) (domain.AppDescriptor, error) {
	var app domain.AppDescriptor
	strFields := []struct {
		key string
		dst *string
	}{
		{"name", &app.Name},
		{"version", &app.Version},
		{"description", &app.Description},
		{"creator", &app.Creator},
		{"entrypoint", &app.Entrypoint},
		{"external_id", &app.ExternalID},
	}
	for _, f := range strFields {
		v, err := scalarString(fields[f.key])
		if err != nil {
			return domain.AppDescriptor{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}

	if err := fields["published"].Decode(&app.Published); err != nil {
		return domain.AppDescriptor{}, fmt.Errorf("published: must be a boolean: %w", err)
	}

	if node, ok := fields["data_set_id"]; ok && node.Tag != "!!null" {
		var id int64
		if err := node.Decode(&id); err != nil {
			return domain.AppDescriptor{}, fmt.Errorf("data_set_id: must be an integer: %w", err)
		}
		app.DataSetID = &id
	}
	return app, nil
}

// scalarString returns the literal text of a scalar, so `version: 1.0`
// stays "1.0".
func scalarString(node *yaml.Node) (string, error) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", errors.New("must be a scalar")
	}
	if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
		return "", errors.New("must be non-empty")
	}
	return node.Value, nil
}

package domain

import (
	"errors"
	"strings"
)

// Credentials authenticate the deployment against a CDF project.
type Credentials struct {
	Project      string
	Cluster      string
	ClientID     string
	TenantID     string
	ClientSecret string
	// DataSetID scopes access checks only.
	DataSetID *int64
}

func (c Credentials) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.Project) == "" {
		verr.Add("project is required")
	}
	if strings.TrimSpace(c.Cluster) == "" {
		verr.Add("cluster is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		verr.Add("client id is required")
	}
	if strings.TrimSpace(c.TenantID) == "" {
		verr.Add("tenant id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		verr.Add("client secret is required")
	}
	return verr.OrNil()
}

// AppDescriptor is the validated content of an app folder's config.yaml.
type AppDescriptor struct {
	Name        string
	Folder      string
	Description string
	ExternalID  string
	Version     string
	Creator     string
	Entrypoint  string
	Published   bool
	DataSetID   *int64
}

func (a AppDescriptor) Validate() error {
	if strings.TrimSpace(a.Folder) == "" {
		return errors.New("folder is required")
	}
	if strings.TrimSpace(a.ExternalID) == "" {
		return errors.New("external_id is required")
	}
	if strings.TrimSpace(a.Entrypoint) == "" {
		return errors.New("entrypoint is required")
	}
	return nil
}

// RunConfig is everything one deployment run needs.
type RunConfig struct {
	Credentials Credentials
	App         AppDescriptor
}

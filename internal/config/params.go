package config

import (
	"fmt"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/ci"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
)

// Parameter keys as declared by the action inputs. The variable actually
// read is derived with ci.Environment.ParamName.
const (
	ParamProject      = "cdf_project"
	ParamCluster      = "cdf_cluster"
	ParamClientID     = "deployment_client_id"
	ParamTenantID     = "deployment_tenant_id"
	ParamClientSecret = "deployment_client_secret"
	ParamDataSetID    = "data_set_id"
	ParamAppFolder    = "app_folder"
)

type credentialField struct {
	key string
	set func(*domain.Credentials, string)
}

var credentialFields = []credentialField{
	{key: ParamProject, set: func(c *domain.Credentials, v string) { c.Project = v }},
	{key: ParamCluster, set: func(c *domain.Credentials, v string) { c.Cluster = v }},
	{key: ParamClientID, set: func(c *domain.Credentials, v string) { c.ClientID = v }},
	{key: ParamTenantID, set: func(c *domain.Credentials, v string) { c.TenantID = v }},
	{key: ParamClientSecret, set: func(c *domain.Credentials, v string) { c.ClientSecret = v }},
}

// LoadCredentials reads the deployment credentials. All missing or invalid
// parameters are reported together.
func LoadCredentials(runner ci.Environment, lookup env.LookupFunc) (domain.Credentials, error) {
	var creds domain.Credentials
	verr := &domain.ValidationError{}

	for _, f := range credentialFields {
		name := runner.ParamName(f.key)
		v, ok := env.Param(lookup, name)
		if !ok {
			verr.Add(fmt.Sprintf("%s is required", name))
			continue
		}
		f.set(&creds, v)
	}

	dsID, err := env.Int64Param(lookup, runner.ParamName(ParamDataSetID))
	if err != nil {
		verr.Add(err.Error())
	}
	creds.DataSetID = dsID

	if err := verr.OrNil(); err != nil {
		return domain.Credentials{}, domain.ConfigError("load credentials", err)
	}
	if err := creds.Validate(); err != nil {
		return domain.Credentials{}, domain.ConfigError("load credentials", err)
	}
	return creds, nil
}

// Load reads credentials and the app descriptor, in that order.
func Load(runner ci.Environment, lookup env.LookupFunc) (domain.RunConfig, error) {
	creds, err := LoadCredentials(runner, lookup)
	if err != nil {
		return domain.RunConfig{}, err
	}
	app, err := LoadAppDescriptor(runner, lookup)
	if err != nil {
		return domain.RunConfig{}, err
	}
	return domain.RunConfig{Credentials: creds, App: app}, nil
}

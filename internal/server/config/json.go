package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/imghost/internal/flagx"
	"github.com/dmitrijs2005/imghost/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "10m" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	GithubToken      string         `json:"github_token"`
	GithubOwner      string         `json:"github_owner"`
	DefaultStoreName string         `json:"default_store_name"`
	SiteURL          string         `json:"site_url"`
	DeployHookURL    string         `json:"deploy_hook_url"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	SessionBackend   string         `json:"session_backend"`
	BlobBackend      string         `json:"blob_backend"`
	TimeZone         string         `json:"time_zone"`
	RedisAddr        string         `json:"redis_addr"`
	CFAPIToken       string         `json:"cf_api_token"`
	CFAccountID      string         `json:"cf_account_id"`
	CFProjectName    string         `json:"cf_project_name"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.GithubToken = c.GithubToken
	config.GithubOwner = c.GithubOwner
	config.DefaultStoreName = c.DefaultStoreName
	config.SiteURL = c.SiteURL
	config.DeployHookURL = c.DeployHookURL
	config.SessionTTL = time.Duration(c.SessionTTL.Duration)
	config.SessionBackend = c.SessionBackend
	config.BlobBackend = c.BlobBackend
	config.TimeZone = c.TimeZone
	config.RedisAddr = c.RedisAddr
	config.CFAPIToken = c.CFAPIToken
	config.CFAccountID = c.CFAccountID
	config.CFProjectName = c.CFProjectName
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}

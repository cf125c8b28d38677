// Package objectstore offloads large artifact tables to S3-compatible
// storage so the engine's artifact store only has to hold a reference.
package objectstore

import (
	"errors"
	"strings"

	"github.com/mediacloud/sous-chef-kitchen/internal/platform/env"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

// ConfigFromEnv reads the object store settings. An empty endpoint means the
// offload is disabled; the worker then keeps all tables inline.
func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("SC_OBJECT_STORE_USE_SSL", true)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Endpoint:  env.String("SC_OBJECT_STORE_ENDPOINT", ""),
		AccessKey: env.String("SC_OBJECT_STORE_ACCESS_KEY", ""),
		SecretKey: env.String("SC_OBJECT_STORE_SECRET_KEY", ""),
		UseSSL:    useSSL,
		Region:    env.String("SC_OBJECT_STORE_REGION", ""),
		Bucket:    env.String("SC_OBJECT_STORE_BUCKET", "kitchen-artifacts"),
	}, nil
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("object store endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("object store credentials are required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("object store bucket is required")
	}
	return nil
}

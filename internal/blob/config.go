package blob

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNone   Kind = ""
	KindS3     Kind = "s3"
	KindHTTP   Kind = "http"
	KindMemory Kind = "memory"
)

type Config struct {
	Kind Kind        `json:"kind" mapstructure:"kind"`
	S3   *S3Config   `json:"s3,omitempty" mapstructure:"s3"`
	HTTP *HTTPConfig `json:"http,omitempty" mapstructure:"http"`
}

type S3Config struct {
	BucketName    string `json:"bucket" mapstructure:"bucket"`
	Region        string `json:"region" mapstructure:"region"`
	AccessKey     string `json:"access_key" mapstructure:"access_key"`
	SecretKey     string `json:"secret_key" mapstructure:"secret_key"`
	Endpoint      string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	UseAccelerate bool   `json:"use_accelerate,omitempty" mapstructure:"use_accelerate"`
}

type HTTPConfig struct {
	URL   string `json:"url" mapstructure:"url"`
	Token string `json:"token,omitempty" mapstructure:"token"`
}

// WithS3Config creates a configuration for an S3 bucket
func WithS3Config(bucketName, region, accessKey, secretKey string, accelerate bool) *Config {
	return &Config{
		Kind: KindS3,
		S3: &S3Config{
			BucketName:    bucketName,
			Region:        region,
			AccessKey:     accessKey,
			SecretKey:     secretKey,
			UseAccelerate: accelerate,
		},
	}
}

// WithMinioConfig creates a configuration for a Minio (or any S3 compatible) bucket
func WithMinioConfig(url, bucketName, accessKey, secretKey string) *Config {
	return &Config{
		Kind: KindS3,
		S3: &S3Config{
			BucketName: bucketName,
			Endpoint:   url,
			Region:     "us-east-1",
			AccessKey:  accessKey,
			SecretKey:  secretKey,
		},
	}
}

func WithHTTPConfig(url, token string) *Config {
	return &Config{
		Kind: KindHTTP,
		HTTP: &HTTPConfig{URL: url, Token: token},
	}
}

// Configured reports whether the config describes a usable store.
func (c *Config) Configured() bool {
	return c != nil && c.Kind != KindNone
}

func (c *Config) Validate() error {
	if c == nil {
		return nil
	}

	switch c.Kind {
	case KindNone, KindMemory:
		return nil
	case KindS3:
		if c.S3 == nil {
			return errors.New("s3 store: missing configuration")
		}
		if c.S3.BucketName == "" {
			return errors.New("s3 store: bucket is required")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return errors.New("s3 store: access key and secret key are required")
		}
		return nil
	case KindHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			return errors.New("http store: url is required")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Kind)
	}
}

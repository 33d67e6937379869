package oss

import (
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"gopkg.in/yaml.v2"

	bferrors "github.com/vnykmshr/byteflow/pkg/common/errors"
	"github.com/vnykmshr/byteflow/pkg/common/validation"
)

// ConfigFile is the layout of a credentials file: the settings live under
// an "alioss" key so they can share a file with other sections.
type ConfigFile struct {
	Config Config `yaml:"alioss"`
}

// Config holds the connection settings for an OSS bucket.
type Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	SecurityToken   string `yaml:"security_token"`
	Bucket          string `yaml:"bucket"`

	// ConnectTimeout and ReadWriteTimeout are in seconds. Zero keeps the
	// SDK defaults.
	ConnectTimeout   int64 `yaml:"connect_timeout"`
	ReadWriteTimeout int64 `yaml:"read_write_timeout"`

	UseCname bool `yaml:"use_cname"`
}

// LoadConfig reads a YAML credentials file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, bferrors.NewOperationError("oss", "LoadConfig", err).WithContext(path)
	}
	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, bferrors.NewOperationError("oss", "LoadConfig", err).WithContext(path)
	}
	return file.Config, file.Config.Validate()
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if err := validation.ValidateNotEmpty("oss", "Endpoint", c.Endpoint); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("oss", "Bucket", c.Bucket); err != nil {
		return err
	}
	if c.ConnectTimeout < 0 {
		return bferrors.NewValidationError("oss", "ConnectTimeout", c.ConnectTimeout, "must be non-negative")
	}
	if c.ReadWriteTimeout < 0 {
		return bferrors.NewValidationError("oss", "ReadWriteTimeout", c.ReadWriteTimeout, "must be non-negative")
	}
	return nil
}

func (c Config) clientOptions() []oss.ClientOption {
	var options []oss.ClientOption
	if c.UseCname {
		options = append(options, oss.UseCname(true))
	}
	if c.SecurityToken != "" {
		options = append(options, oss.SecurityToken(c.SecurityToken))
	}
	if c.ConnectTimeout > 0 || c.ReadWriteTimeout > 0 {
		connect, rw := c.ConnectTimeout, c.ReadWriteTimeout
		if connect == 0 {
			connect = 30
		}
		if rw == 0 {
			rw = 60
		}
		options = append(options, oss.Timeout(connect, rw))
	}
	return options
}

// OpenBucket connects to the configured bucket.
func OpenBucket(c Config) (*oss.Bucket, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	client, err := oss.New(c.Endpoint, c.AccessKeyID, c.AccessKeySecret, c.clientOptions()...)
	if err != nil {
		return nil, mapError(err)
	}
	bucket, err := client.Bucket(c.Bucket)
	if err != nil {
		return nil, mapError(err)
	}
	return bucket, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	Logger     Logger     `yaml:"logger"`
	HttpClient HttpClient `yaml:"http_client"`
	Bridge     Bridge     `yaml:"bridge"`
}

type Logger struct {
	Level string `yaml:"level"`
}

type HttpClient struct {
	Debug            string          `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TlsClientConfig  TlsClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TlsClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Bridge holds settings specific to issue creation and attachment mirroring.
type Bridge struct {
	AttachmentsBranch string `yaml:"attachments_branch"`
	AttachmentsDir    string `yaml:"attachments_dir"`
	TemplateDir       string `yaml:"template_dir"`
	TargetInstance    string `yaml:"target_instance"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the YAML configuration from configPath. A missing file is
// not an error: the command is usually run inside CI where only environment
// variables are available, so defaults are applied instead.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	if err := LoadYAML(configPath, config); err != nil {
		if os.IsNotExist(err) {
			applyBridgeDefaults(&config.Bridge)
			return config, nil
		}
		return nil, err
	}

	applyBridgeDefaults(&config.Bridge)
	return config, nil
}

// applyBridgeDefaults fills unset bridge settings with their defaults.
func applyBridgeDefaults(b *Bridge) {
	b.AttachmentsBranch = SetThen(b.AttachmentsBranch, DefaultAttachmentsBranch)
	b.AttachmentsDir = SetThen(b.AttachmentsDir, DefaultAttachmentsDir)
	b.TemplateDir = SetThen(b.TemplateDir, DefaultTemplateDir)
	b.TargetInstance = SetThen(b.TargetInstance, DefaultTargetInstance)
}

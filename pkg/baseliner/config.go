package baseliner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/JayjeetAtGithub/blackswan-baseliner/pkg/sshx"
)

const (
	// Program is used to configure the name of the configuration file.
	Program = "baseliner"
	// DefaultConfigPath is the fleet file used if none is given.
	DefaultConfigPath = Program + ".yml"
)

// File is a local file uploaded to every machine.
type File struct {
	Src string `yaml:"src"`
	Dst string `yaml:"dst"`
	// Mode is an octal permission string such as "0755".
	Mode string `yaml:"mode"`
}

// FileMode parses the permission bits of the file. An empty
// mode leaves the permissions to the remote server.
func (f File) FileMode() (os.FileMode, error) {
	if f.Mode == "" {
		return 0, nil
	}

	mode, err := strconv.ParseUint(f.Mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q for %s: %w", f.Mode, f.Dst, err)
	}

	return os.FileMode(mode).Perm(), nil
}

// Config describes a fleet and the commands of a baseline run.
type Config struct {
	// Defaults is merged into every machine for all fields
	// the machine leaves empty.
	Defaults sshx.Config `yaml:"defaults"`

	// Machines is the fleet in execution order.
	Machines []sshx.Config `yaml:"machines"`

	// Commands is the literal command list. It is mutually
	// exclusive with CommandsFile.
	Commands []string `yaml:"commands"`

	// CommandsFile is a newline-delimited file of commands.
	CommandsFile string `yaml:"commands-file"`

	// Timeout is the per-command deadline.
	Timeout time.Duration `yaml:"timeout"`

	OnStderr  StderrPolicy  `yaml:"on-stderr"`
	OnFailure FailurePolicy `yaml:"on-failure"`

	// Env is injected into every command.
	Env map[string]string `yaml:"env"`

	// Files are uploaded after connecting and before the first command.
	Files []File `yaml:"files"`
}

// SetDefaults merges the machine defaults into every machine and
// fills in the defaults of the run settings.
func (c *Config) SetDefaults() error {
	for i := range c.Machines {
		if err := mergo.Merge(&c.Machines[i], c.Defaults); err != nil {
			return err
		}
		c.Machines[i].SetDefaults()
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.OnStderr == "" {
		c.OnStderr = StderrIgnore
	}
	if c.OnFailure == "" {
		c.OnFailure = FailureAbort
	}

	return nil
}

// Verify verifies the configuration file.
func (c *Config) Verify() error {
	if c == nil {
		return errors.New("configuration empty")
	}

	if len(c.Machines) == 0 {
		return errors.New("no machines specified")
	}

	for i, machine := range c.Machines {
		if machine.Host == "" {
			return fmt.Errorf("machine %d: no host specified", i+1)
		}
		if machine.Key == "" && machine.KeyFile == "" {
			return fmt.Errorf("machine %s: %w", machine.Host, sshx.ErrNoAuthMethod)
		}
	}

	if len(c.Commands) > 0 && c.CommandsFile != "" {
		return errors.New("commands and commands-file are mutually exclusive")
	}

	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	if _, err := ParseStderrPolicy(string(c.OnStderr)); err != nil {
		return err
	}
	if _, err := ParseFailurePolicy(string(c.OnFailure)); err != nil {
		return err
	}

	for _, file := range c.Files {
		if file.Src == "" || file.Dst == "" {
			return errors.New("files need both src and dst")
		}
		if _, err := file.FileMode(); err != nil {
			return err
		}
	}

	return nil
}

// ParseConfig parses a YAML fleet file and applies the defaults.
// Unknown keys are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	// Parse YAML config into struct.
	config := new(Config)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := config.SetDefaults(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig loads the configuration file.
func LoadConfig(configFile string) (*Config, error) {
	configBytes, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	config, err := ParseConfig(bytes.NewReader(configBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}

	return config, nil
}

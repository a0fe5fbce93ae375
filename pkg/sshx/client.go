package sshx

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultPort is used if a configuration does not specify a port.
	DefaultPort = 22
	// DefaultUser is used if a configuration does not specify a user.
	DefaultUser = "root"
)

// Config is a flat configuration for an SSH connection.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	KeyFile    string `yaml:"key-file"`
	Key        string `yaml:"key"`
	Passphrase string `yaml:"passphrase"`
}

// SetDefaults fills in the default port and user.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.User == "" {
		c.User = DefaultUser
	}
}

// Address returns the "host:port" address of the configuration.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client is an augmented SSH client.
type Client struct {
	*Options
	*ssh.Client
}

// NewClient creates a new SSH client based on an SSH configuration
// and connects to it.
func NewClient(ctx context.Context, config *Config, options ...Option) (*Client, error) {
	opts, err := GetDefaultOptions().Apply(options...)
	if err != nil {
		return nil, err
	}

	// Create a new client.
	client := &Client{
		Options: opts,
	}

	config.SetDefaults()

	normalizedConfig, err := client.normalizeConfig(config)
	if err != nil {
		return nil, err
	}
	address := config.Address()

	dialer := net.Dialer{Timeout: client.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, address, err)
	}

	// The handshake is bounded by the same timeout as the dial.
	if client.Timeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(client.Timeout))
	}

	conn, channels, requests, err := ssh.NewClientConn(netConn, address, normalizedConfig)
	if err != nil {
		netConn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("%w: %s@%s: %w", ErrAuthentication, config.User, address, err)
		}
		return nil, fmt.Errorf("%w: handshake with %s: %w", ErrTransport, address, err)
	}
	_ = netConn.SetDeadline(time.Time{})

	client.Client = ssh.NewClient(conn, channels, requests)

	return client, nil
}

// normalizeConfig creates a new client config that is compatible with the standard library.
func (client *Client) normalizeConfig(config *Config) (*ssh.ClientConfig, error) {
	signer := client.Signer
	if signer == nil {
		var err error
		if signer, err = LoadSigner(config, client.PassphrasePrompt); err != nil {
			return nil, err
		}
	}

	// Server identity is accepted unconditionally.
	client.Logger.Warn().Msg("Skipping host key verification is insecure!")
	client.Logger.Warn().Msg("This allows for person-in-the-middle attacks!")

	return &ssh.ClientConfig{
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		User:            config.User,
		Timeout:         client.Timeout,
	}, nil
}

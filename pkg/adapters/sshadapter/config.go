// Package sshadapter executes plan actions by invoking the vendor CLI on a
// remote execution host over SSH. Creative assets referenced by actions are
// staged onto the host with SFTP before the action runs.
package sshadapter

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config configures the SSH adapter.
type Config struct {
	// Host is the remote execution host.
	Host string `yaml:"host"`

	// Port is the SSH port. Zero defaults to 22.
	Port int `yaml:"port"`

	// User is the SSH login user.
	User string `yaml:"user"`

	// PrivateKeyPath points at the SSH private key file.
	PrivateKeyPath string `yaml:"private_key_path"`

	// RemoteCLI is the vendor CLI binary path on the remote host.
	RemoteCLI string `yaml:"remote_cli"`

	// RemoteAssetDir is where creative assets are staged on the remote host.
	RemoteAssetDir string `yaml:"remote_asset_dir"`

	// ConnectTimeout bounds the SSH dial. Zero defaults to 30s.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// HostKeyCallback verifies the remote host key. Nil is rejected by
	// Validate; tests and lab setups can set ssh.InsecureIgnoreHostKey().
	HostKeyCallback ssh.HostKeyCallback `yaml:"-"`
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.PrivateKeyPath == "" {
		return fmt.Errorf("private key path is required")
	}
	if c.RemoteCLI == "" {
		return fmt.Errorf("remote CLI path is required")
	}
	if c.HostKeyCallback == nil {
		return fmt.Errorf("host key callback is required")
	}
	return nil
}

// clientConfig builds the ssh client configuration.
func (c *Config) clientConfig() (*ssh.ClientConfig, error) {
	keyBytes, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	timeout := c.ConnectTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: c.HostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// addr returns the host:port dial address.
func (c *Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

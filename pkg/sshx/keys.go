package sshx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// PassphrasePrompt returns the passphrase for the provided key path.
type PassphrasePrompt func(keyPath string) (string, error)

// ExpandHome resolves a leading "~" to the home directory of the current user.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// LoadSigner loads the private key of a configuration. A key that
// is specified directly takes precedence over a key file. If the key
// is encrypted and no passphrase is configured, the prompt is asked.
func LoadSigner(config *Config, prompt PassphrasePrompt) (ssh.Signer, error) {
	source := "inline key"
	key := []byte(config.Key)
	if len(key) == 0 {
		if config.KeyFile == "" {
			return nil, ErrNoAuthMethod
		}

		keyFile, err := ExpandHome(config.KeyFile)
		if err != nil {
			return nil, err
		}
		source = keyFile

		if key, err = os.ReadFile(keyFile); err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
	}

	if config.Passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(key, []byte(config.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("parse private key with passphrase: %w", err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	if prompt == nil {
		return nil, ErrPassphraseRequired
	}

	passphrase, err := prompt(source)
	if err != nil {
		return nil, fmt.Errorf("passphrase prompt failed: %w", err)
	}
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("parse private key with passphrase: %w", err)
	}

	return signer, nil
}

// TerminalPassphrasePrompt reads a passphrase from stdin without echoing input.
func TerminalPassphrasePrompt(path string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", path)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	return string(passphrase), nil
}

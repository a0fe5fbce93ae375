package sshx

import "errors"

var (
	ErrNoAuthMethod       = errors.New("no authentication method specified")
	ErrPassphraseRequired = errors.New("passphrase required for private key")
	ErrAuthentication     = errors.New("authentication failed")
	ErrTransport          = errors.New("transport failure")
	ErrCommandTimeout     = errors.New("command timed out")
	ErrNotConnected       = errors.New("not connected")
)

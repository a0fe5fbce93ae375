package sshx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JayjeetAtGithub/blackswan-baseliner/internal/sshtest"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/.ssh/id_rsa")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".ssh", "id_rsa"), got)

	got, err = ExpandHome("~")
	require.NoError(t, err)
	require.Equal(t, home, got)

	got, err = ExpandHome("/etc/ssh/key")
	require.NoError(t, err)
	require.Equal(t, "/etc/ssh/key", got)

	got, err = ExpandHome("~other/key")
	require.NoError(t, err)
	require.Equal(t, "~other/key", got)
}

func TestLoadSignerFromHomeRelativeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, pub := sshtest.WriteKey(t, home, "")
	require.Equal(t, filepath.Join(home, "id_ed25519"), path)

	signer, err := LoadSigner(&Config{KeyFile: "~/id_ed25519"}, nil)
	require.NoError(t, err)
	require.Equal(t, pub.Marshal(), signer.PublicKey().Marshal())
}

func TestLoadSignerInlineKeyTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path, pub := sshtest.WriteKey(t, dir, "")
	key, err := os.ReadFile(path)
	require.NoError(t, err)

	signer, err := LoadSigner(&Config{Key: string(key), KeyFile: "/does/not/exist"}, nil)
	require.NoError(t, err)
	require.Equal(t, pub.Marshal(), signer.PublicKey().Marshal())
}

func TestLoadSignerWithPassphrase(t *testing.T) {
	dir := t.TempDir()
	path, pub := sshtest.WriteKey(t, dir, "12345")

	signer, err := LoadSigner(&Config{KeyFile: path, Passphrase: "12345"}, nil)
	require.NoError(t, err)
	require.Equal(t, pub.Marshal(), signer.PublicKey().Marshal())

	_, err = LoadSigner(&Config{KeyFile: path, Passphrase: "wrong"}, nil)
	require.Error(t, err)
}

func TestLoadSignerEncryptedKeyWithoutPassphrase(t *testing.T) {
	dir := t.TempDir()
	path, pub := sshtest.WriteKey(t, dir, "12345")

	_, err := LoadSigner(&Config{KeyFile: path}, nil)
	require.ErrorIs(t, err, ErrPassphraseRequired)

	var asked string
	signer, err := LoadSigner(&Config{KeyFile: path}, func(keyPath string) (string, error) {
		asked = keyPath
		return "12345", nil
	})
	require.NoError(t, err)
	require.Equal(t, path, asked)
	require.Equal(t, pub.Marshal(), signer.PublicKey().Marshal())

	_, err = LoadSigner(&Config{KeyFile: path}, func(string) (string, error) {
		return "", nil
	})
	require.ErrorIs(t, err, ErrPassphraseRequired)

	promptErr := errors.New("no tty")
	_, err = LoadSigner(&Config{KeyFile: path}, func(string) (string, error) {
		return "", promptErr
	})
	require.ErrorIs(t, err, promptErr)
}

func TestLoadSignerErrors(t *testing.T) {
	_, err := LoadSigner(&Config{}, nil)
	require.ErrorIs(t, err, ErrNoAuthMethod)

	_, err = LoadSigner(&Config{KeyFile: filepath.Join(t.TempDir(), "missing")}, nil)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadSigner(&Config{Key: "not a key"}, nil)
	require.Error(t, err)
}

package sshx

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
)

// Upload copies the content of src to the remote path dst over SFTP.
// Missing parent directories are created.
func (client *Client) Upload(dst string, src io.Reader, mode os.FileMode) error {
	if client == nil || client.Client == nil {
		return ErrNotConnected
	}

	sftpClient, err := sftp.NewClient(client.Client)
	if err != nil {
		return fmt.Errorf("%w: start sftp: %w", ErrTransport, err)
	}
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(path.Dir(dst)); err != nil {
		return fmt.Errorf("create remote directory: %w", err)
	}

	file, err := sftpClient.Create(dst)
	if err != nil {
		return fmt.Errorf("create remote file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, src); err != nil {
		return fmt.Errorf("write remote file: %w", err)
	}

	if mode != 0 {
		if err := file.Chmod(mode); err != nil {
			return fmt.Errorf("chmod remote file: %w", err)
		}
	}

	return nil
}

package baseliner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// maxCommandLength bounds a single line of a commands file.
const maxCommandLength = 1024 * 1024

// ReadCommands reads one command per line. Only the line terminator
// is removed; empty lines become empty commands.
func ReadCommands(r io.Reader) ([]string, error) {
	commands := []string{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCommandLength)
	for scanner.Scan() {
		commands = append(commands, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return commands, nil
}

// ReadCommandsFile reads the commands file at path.
func ReadCommandsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no such file at %s", ErrCommandFileNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	commands, err := ReadCommands(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return commands, nil
}

// LoadCommands replaces the command list.
func (b *Baseliner) LoadCommands(commands []string) {
	b.commands = append([]string{}, commands...)
}

// LoadCommandsFromFile replaces the command list with the content
// of a commands file. The current list is kept if reading fails.
func (b *Baseliner) LoadCommandsFromFile(path string) error {
	commands, err := ReadCommandsFile(path)
	if err != nil {
		return err
	}

	b.commands = commands
	b.Logger.Debug().Str("path", path).Int("commands", len(commands)).Msg("Loaded commands")

	return nil
}

// Commands returns a copy of the command list.
func (b *Baseliner) Commands() []string {
	return append([]string{}, b.commands...)
}

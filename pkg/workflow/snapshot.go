package workflow

import (
	"fmt"
	"os"
)

// SaveSnapshot writes the session to a snappy-compressed JSON file, the
// "save my progress" feature of the wizard. The write goes through a temp
// file and rename so a crash never leaves a torn snapshot.
func SaveSnapshot(session *Session, path string) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a session snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeSession(data)
}

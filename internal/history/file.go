package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// WriteFile writes one hand as a PHH file, or several as a PHHS session keyed
// "1", "2", and so on. The file is written to a
// temporary sibling and renamed, so readers see either the old file or the
// complete new one.
func WriteFile(filename string, hands ...Hand) error {
	var buf bytes.Buffer
	if len(hands) == 1 {
		if err := Encode(&buf, hands[0]); err != nil {
			return err
		}
	} else {
		session := make(map[string]Hand, len(hands))
		for i, h := range hands {
			session[strconv.Itoa(i+1)] = h
		}
		enc := toml.NewEncoder(&buf)
		enc.Indent = "\t"
		if err := enc.Encode(session); err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

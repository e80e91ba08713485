package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target")
	content := []byte("#!/bin/sh\necho hi\n")
	assert.NoError(t, os.WriteFile(path, content, 0o755))

	h, err := FileHash(path)
	assert.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), h.Sha256)
	assert.Len(t, h.Sha1, 40)
}

func TestFileHashMissingFile(t *testing.T) {
	_, err := FileHash(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

package policy

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileHash computes both recorded digests of the file in one pass.
func FileHash(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("open target for hashing: %w", err)
	}
	defer f.Close()

	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h1, h256), f); err != nil {
		return Hash{}, fmt.Errorf("hash target: %w", err)
	}

	return Hash{
		Sha1:   hex.EncodeToString(h1.Sum(nil)),
		Sha256: hex.EncodeToString(h256.Sum(nil)),
	}, nil
}

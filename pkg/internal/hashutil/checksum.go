// Package hashutil computes the content digests harnesssync stores as drift
// baselines. Every digest is rendered as "sha256:<hex>".
package hashutil

import (
	"crypto/sha256"
	"fmt"

	"github.com/arthur-debert/harnesssync/pkg/types"
)

// Prefix is prepended to every hex digest.
const Prefix = "sha256:"

// ChecksumFS hashes a file read through fs.
func ChecksumFS(fs types.FS, path string) (string, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ChecksumBytes(data), nil
}

// ChecksumBytes hashes in-memory content.
func ChecksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return format(sum[:])
}

// ChecksumFiles hashes every regular file in paths, skipping the ones that
// cannot be read. The result is keyed by path.
func ChecksumFiles(fs types.FS, paths []string) map[string]string {
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		info, err := fs.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		sum, err := ChecksumFS(fs, p)
		if err != nil {
			continue
		}
		hashes[p] = sum
	}
	return hashes
}

func format(sum []byte) string {
	return fmt.Sprintf("%s%x", Prefix, sum)
}

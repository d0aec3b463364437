package envfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
)

// loadEncrypted decrypts a SOPS file in-process and parses the cleartext
// according to the file's final extension.
func loadEncrypted(path string) (Source, error) {
	format := formatForPath(path)

	cleartext, err := decrypt.File(path, format)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", path, err)
	}

	switch format {
	case "dotenv":
		src, err := Parse(cleartext)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return src, nil
	default:
		return parseMapping(cleartext, path)
	}
}

// formatForPath maps a file extension to a SOPS store format.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".env":
		return "dotenv"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

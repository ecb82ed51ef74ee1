package scaffold

import (
	"fmt"
	"os"
	"strings"
)

// CheckExisting checks if federation.yml, fom.yml or federates/ already exist
// Returns an error if they do, nil otherwise
func CheckExisting() error {
	var existingFiles []string

	for _, name := range []string{FederationFile, FOMFile} {
		if _, err := os.Stat(name); err == nil {
			existingFiles = append(existingFiles, name)
		}
	}

	if info, err := os.Stat(FederatesDir); err == nil && info.IsDir() {
		existingFiles = append(existingFiles, FederatesDir+"/")
	}

	if len(existingFiles) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("project already initialized\n\nFound existing")
	if len(existingFiles) == 1 {
		fmt.Fprintf(&b, ": %s\n", existingFiles[0])
	} else {
		b.WriteString(" files:\n")
		for _, file := range existingFiles {
			fmt.Fprintf(&b, "  - %s\n", file)
		}
	}
	b.WriteString("\nUse 'lockstep init --force' to reinitialize (this will overwrite existing configuration)")

	return fmt.Errorf("%s", b.String())
}

package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/lockstep/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	// FederationFile is the federation file created at the project root.
	FederationFile = "federation.yml"
	// FOMFile is the object model shared by the example federates.
	FOMFile = "fom.yml"
	// FederatesDir holds one file per federate.
	FederatesDir = "federates"
)

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the example federation in the current directory.
// If force is true, it will remove existing federation.yml, fom.yml and
// federates/ first.
func Initialize(force bool) error {
	// Handle --force flag
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(FederatesDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", FederatesDir, err)
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	// Validate created files
	return validateCreatedFiles()
}

// handleForce removes existing files if --force was specified
func handleForce() error {
	for _, name := range []string{FederationFile, FOMFile} {
		if _, err := os.Stat(name); err == nil {
			fmt.Printf("⚠️  Removing existing %s...\n", name)
			if err := os.Remove(name); err != nil {
				return fmt.Errorf("failed to remove %s: %w", name, err)
			}
		}
	}

	if info, err := os.Stat(FederatesDir); err == nil && info.IsDir() {
		fmt.Printf("⚠️  Removing existing %s/ directory...\n", FederatesDir)
		if err := os.RemoveAll(FederatesDir); err != nil {
			return fmt.Errorf("failed to remove %s/ directory: %w", FederatesDir, err)
		}
	}

	return nil
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	layout := []struct{ template, path string }{
		{"federation.yml.tmpl", FederationFile},
		{"fom.yml.tmpl", FOMFile},
		{"plane.yml.tmpl", filepath.Join(FederatesDir, "plane.yml")},
		{"tower.yml.tmpl", filepath.Join(FederatesDir, "tower.yml")},
	}

	files := make([]FileInfo, 0, len(layout))
	for _, l := range layout {
		content, err := templatesFS.ReadFile("templates/" + l.template)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", l.path, err)
		}
		files = append(files, FileInfo{Path: l.path, Content: content, Permissions: 0644})
	}
	return files, nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return nil
}

// validateCreatedFiles loads the federation the way `lockstep local` will.
func validateCreatedFiles() error {
	if _, err := config.LoadFederation(FederationFile); err != nil {
		return fmt.Errorf("created %s is not valid: %w", FederationFile, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized example federation!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ federation.yml")
	fmt.Println("  ✓ fom.yml")
	fmt.Println("  ✓ federates/plane.yml")
	fmt.Println("  ✓ federates/tower.yml")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'lockstep local -f federation.yml' to run both federates in one process")
	fmt.Println("  2. Or run 'lockstep rtig', then 'lockstep federate -f federates/plane.yml'")
	fmt.Println("     and 'lockstep federate -f federates/tower.yml' in separate terminals")
}

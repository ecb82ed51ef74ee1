package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(dir string)
		wantErr   bool
		errMsgs   []string
	}{
		{
			name:      "no existing files",
			setupFunc: func(string) {},
		},
		{
			name: "existing federation.yml only",
			setupFunc: func(dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, FederationFile), []byte("version: '1.0'"), 0644))
			},
			wantErr: true,
			errMsgs: []string{"Found existing: federation.yml"},
		},
		{
			name: "existing federates/ directory only",
			setupFunc: func(dir string) {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, FederatesDir), 0755))
			},
			wantErr: true,
			errMsgs: []string{"federates/"},
		},
		{
			name: "several existing files",
			setupFunc: func(dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, FederationFile), []byte("x"), 0644))
				require.NoError(t, os.WriteFile(filepath.Join(dir, FOMFile), []byte("x"), 0644))
			},
			wantErr: true,
			errMsgs: []string{"Found existing files:", "  - federation.yml", "  - fom.yml", "lockstep init --force"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			tt.setupFunc(dir)

			err := CheckExisting()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.errMsgs {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

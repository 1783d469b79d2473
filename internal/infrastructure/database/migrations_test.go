package database

import "testing"

// ─── parseMigrationFilename ───

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{
			filename:    "20260214_120000_create_sequences.up.sql",
			wantVersion: "20260214_120000",
			wantName:    "create_sequences",
			wantUp:      true,
			wantOK:      true,
		},
		{
			filename:    "20260214_120000_create_sequences.down.sql",
			wantVersion: "20260214_120000",
			wantName:    "",
			wantUp:      false,
			wantOK:      true,
		},
		{
			filename:    "20260301_093000_add_devices.up.sql",
			wantVersion: "20260301_093000",
			wantName:    "add_devices",
			wantUp:      true,
			wantOK:      true,
		},
		{
			filename: "README.md",
			wantOK:   false,
		},
		{
			filename: "notamigration.sql",
			wantOK:   false,
		},
		{
			filename: "20260214.up.sql",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if isUp && name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if isUp != tt.wantUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantUp)
			}
		})
	}
}

package repository

import "testing"

func TestRefTableName(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		want       string
		wantErr    bool
	}{
		{"plain", "employees", "ref_employees", false},
		{"mixed case", "Employees", "ref_employees", false},
		{"spaces collapse", " Cost Centers ", "ref_costcenters", false},
		{"underscores kept", "tax_codes", "ref_tax_codes", false},
		{"digits kept", "accounts2024", "ref_accounts2024", false},
		{"hyphen rejected", "employees-2024", "", true},
		{"sql metacharacters rejected", "x; DROP TABLE users", "", true},
		{"backtick rejected", "ref`", "", true},
		{"empty rejected", "", "", true},
		{"whitespace only rejected", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := refTableName(tt.entityType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("refTableName(%q) = %q, want error", tt.entityType, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("refTableName(%q): %v", tt.entityType, err)
			}
			if got != tt.want {
				t.Errorf("refTableName(%q) = %q, want %q", tt.entityType, got, tt.want)
			}
		})
	}
}

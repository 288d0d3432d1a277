package participant

import "testing"

// TestNormalizeType verifies every accepted spelling and the EXTERNO fallback.
func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INTERNO", TypeInternal},
		{"internal", TypeInternal},
		{"EXTERNAL", TypeExternal},
		{"EXTERNO", TypeExternal},
		{"ADMINISTRATOR", TypeAdmin},
		{"admin", TypeAdmin},
		{"", TypeExternal},
		{"visitor", TypeExternal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeType(tt.in); got != tt.want {
				t.Errorf("NormalizeType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestParticipant_Validate covers the required-field rules.
func TestParticipant_Validate(t *testing.T) {
	valid := Participant{FullName: "Ana López", Email: "ana@gmail.com", Type: TypeExternal}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid participant rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(p *Participant)
		wantErr error
	}{
		{"empty name", func(p *Participant) { p.FullName = "  " }, ErrEmptyName},
		{"bad email", func(p *Participant) { p.Email = "ana.gmail.com" }, ErrInvalidEmail},
		{"bad type", func(p *Participant) { p.Type = "GUEST" }, ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

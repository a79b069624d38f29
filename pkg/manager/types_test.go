package manager

import (
	"errors"
	"testing"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		input   string
		want    OperationType
		wantErr bool
	}{
		{"install", OperationInstall, false},
		{"update", OperationUpdate, false},
		{"upgrade", OperationUpdate, false},
		{"remove", OperationUninstall, false},
		{"uninstall", OperationUninstall, false},
		{"purge", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperation(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOperation) {
					t.Errorf("expected ErrInvalidOperation, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseOperation(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestVerdictPredicates(t *testing.T) {
	tests := []struct {
		v        Verdict
		success  bool
		terminal bool
		name     string
	}{
		{VerdictSucceeded, true, true, "succeeded"},
		{VerdictRestartRequired, true, true, "restart-required"},
		{VerdictFailed, false, true, "failed"},
		{VerdictCanceled, false, true, "canceled"},
		{VerdictAutoRetry, false, false, "auto-retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.IsSuccess() != tt.success {
				t.Errorf("IsSuccess() = %v", tt.v.IsSuccess())
			}
			if tt.v.IsTerminal() != tt.terminal {
				t.Errorf("IsTerminal() = %v", tt.v.IsTerminal())
			}
			if tt.v.String() != tt.name {
				t.Errorf("String() = %q", tt.v.String())
			}
			text, _ := tt.v.MarshalText()
			var back Verdict
			if err := back.UnmarshalText(text); err != nil || back != tt.v {
				t.Errorf("UnmarshalText(%s) = %v, %v", text, back, err)
			}
		})
	}
}

func TestParseScopeAndArchitecture(t *testing.T) {
	if s, err := ParseScope("global"); err != nil || s != ScopeMachine {
		t.Errorf("ParseScope(global) = %v, %v", s, err)
	}
	if s, err := ParseScope(""); err != nil || s != ScopeDefault {
		t.Errorf("ParseScope('') = %v, %v", s, err)
	}
	if _, err := ParseScope("everywhere"); err == nil {
		t.Error("expected error for unknown scope")
	}

	if a, err := ParseArchitecture("amd64"); err != nil || a != ArchX64 {
		t.Errorf("ParseArchitecture(amd64) = %v, %v", a, err)
	}
	if _, err := ParseArchitecture("mips"); err == nil {
		t.Error("expected error for unknown architecture")
	}
}

func TestCustomArgs(t *testing.T) {
	opts := InstallOptions{
		CustomArgsInstall:   []string{"--i"},
		CustomArgsUpdate:    []string{"--u"},
		CustomArgsUninstall: []string{"--x"},
	}

	tests := []struct {
		op   OperationType
		want string
	}{
		{OperationInstall, "--i"},
		{OperationUpdate, "--u"},
		{OperationUninstall, "--x"},
	}

	for _, tt := range tests {
		args := opts.CustomArgs(tt.op)
		if len(args) != 1 || args[0] != tt.want {
			t.Errorf("CustomArgs(%v) = %v, want [%s]", tt.op, args, tt.want)
		}
	}
}

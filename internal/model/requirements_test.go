package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedMemory(gb float64) func() (uint64, error) {
	return func() (uint64, error) { return uint64(gb * (1 << 30)), nil }
}

func TestRequirements_Check(t *testing.T) {
	present := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, os.WriteFile(present, []byte("GGUF"), 0644))
	missing := filepath.Join(t.TempDir(), "absent.gguf")

	tests := []struct {
		name    string
		req     Requirements
		wantErr error
		wantMsg string
	}{
		{
			name: "enough memory and model present",
			req:  Requirements{ModelPath: present, MinRAMGB: 4, TotalMemory: fixedMemory(16)},
		},
		{
			name:    "too little memory",
			req:     Requirements{ModelPath: present, MinRAMGB: 4, TotalMemory: fixedMemory(2)},
			wantErr: ErrInsufficientMemory,
			wantMsg: "insufficient memory: only 2.0GB RAM available, minimum 4GB recommended",
		},
		{
			name:    "memory checked before model file",
			req:     Requirements{ModelPath: missing, MinRAMGB: 4, TotalMemory: fixedMemory(3.5)},
			wantErr: ErrInsufficientMemory,
		},
		{
			name:    "missing model",
			req:     Requirements{ModelPath: missing, MinRAMGB: 4, TotalMemory: fixedMemory(8)},
			wantErr: ErrNotFound,
		},
		{
			name: "unreadable memory is skipped",
			req: Requirements{ModelPath: present, MinRAMGB: 4, TotalMemory: func() (uint64, error) {
				return 0, errors.New("no /proc/meminfo")
			}},
		},
		{
			name: "unknown total is skipped",
			req:  Requirements{MinRAMGB: 4, TotalMemory: fixedMemory(0)},
		},
		{
			name: "zero minimum disables the memory check",
			req: Requirements{ModelPath: present, TotalMemory: func() (uint64, error) {
				t.Fatal("memory read with check disabled")
				return 0, nil
			}},
		},
		{
			name: "no model path",
			req:  Requirements{MinRAMGB: 4, TotalMemory: fixedMemory(8)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Check()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.EqualError(t, err, tt.wantMsg)
			}
		})
	}
}

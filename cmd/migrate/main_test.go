package main

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/counseling-clinic/migrations"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		args    []string
		cmd     string
		arg     int
		wantErr bool
	}{
		{args: nil, cmd: "up"},
		{args: []string{"up"}, cmd: "up"},
		{args: []string{"version"}, cmd: "version"},
		{args: []string{"down", "1"}, cmd: "down", arg: 1},
		{args: []string{"force", "0"}, cmd: "force", arg: 0},
		{args: []string{"down", "0"}, wantErr: true},
		{args: []string{"down"}, wantErr: true},
		{args: []string{"force", "x"}, wantErr: true},
		{args: []string{"sideways"}, wantErr: true},
	}
	for _, tt := range tests {
		cmd, arg, err := parseArgs(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.cmd, cmd)
		assert.Equal(t, tt.arg, arg)
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run("", nil, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(appmigrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", n)
		}
	}
	assert.Equal(t, ups, downs)
}

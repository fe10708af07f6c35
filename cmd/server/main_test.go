package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/heapsql"
	"github.com/tuannm99/heapsql/internal/httpapi"
	"github.com/tuannm99/heapsql/server/heapsqlwire"
)

func TestBuildContainer(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("storage:\n  mode: memory\nlog:\n  level: error\n"), 0o644))

	c, err := buildContainer(p)
	require.NoError(t, err)

	err = c.Invoke(func(db *heapsql.Database, wire *heapsqlwire.Server, api *httpapi.Server) error {
		defer func() { _ = db.Close() }()
		assert.NotNil(t, wire)
		assert.NotNil(t, api)
		res, err := db.Exec("SHOW TABLES")
		if err != nil {
			return err
		}
		assert.Empty(t, res.Rows)
		return nil
	})
	require.NoError(t, err)
}

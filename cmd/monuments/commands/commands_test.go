package commands

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadUpload(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "batch.csv", []byte("Title,Latitude,Longitude\nA,1,2\n"))
	zipPath := writeFile(t, dir, "batch.zip", zipBytes(t, map[string]string{"batch.csv": "Title\nA\n"}))

	t.Run("spreadsheet with archive", func(t *testing.T) {
		up, err := readUpload(&am.Config{}, csvPath, zipPath, "")
		require.NoError(t, err)
		assert.NotEmpty(t, up.Spreadsheet)
		assert.NotEmpty(t, up.Archive)
		assert.Empty(t, up.Mapping)
	})

	t.Run("zip as spreadsheet becomes the archive", func(t *testing.T) {
		up, err := readUpload(&am.Config{}, zipPath, "", "")
		require.NoError(t, err)
		assert.Empty(t, up.Spreadsheet)
		assert.NotEmpty(t, up.Archive)
	})

	t.Run("zip plus archive is rejected", func(t *testing.T) {
		_, err := readUpload(&am.Config{}, zipPath, zipPath, "")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readUpload(&am.Config{}, filepath.Join(dir, "nope.csv"), "", "")
		require.Error(t, err)
	})

	t.Run("flag mapping overrides config mapping", func(t *testing.T) {
		base := writeFile(t, dir, "base.yaml", []byte("\"Name\": title\n\"Lat\": latitude\n"))
		override := writeFile(t, dir, "override.json", []byte(`{"Name": "artist"}`))

		cfg := &am.Config{}
		cfg.Ingest.MappingFile = base
		up, err := readUpload(cfg, csvPath, "", override)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Name": "artist", "Lat": "latitude"}, up.Mapping)
	})

	t.Run("bad mapping", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.yaml", []byte("- not\n- a map\n"))
		_, err := readUpload(&am.Config{}, csvPath, "", bad)
		require.Error(t, err)
	})
}

func TestVersionJSON(t *testing.T) {
	var out bytes.Buffer
	VersionCmd.SetOut(&out)
	versionJSONFlag = true
	t.Cleanup(func() {
		versionJSONFlag = false
		VersionCmd.SetOut(nil)
	})

	require.NoError(t, VersionCmd.RunE(VersionCmd, nil))

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "commit_hash")
	assert.Contains(t, info, "go_version")
}

func TestAmShowFormats(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("MONUMENTS_SERVER_PORT", "9191")
	am.Reset()
	t.Cleanup(am.Reset)

	for _, format := range []string{"toml", "json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var out bytes.Buffer
			amShowCmd.SetOut(&out)
			configFormat = format
			t.Cleanup(func() {
				configFormat = "toml"
				amShowCmd.SetOut(nil)
			})

			require.NoError(t, runAmShow(amShowCmd, nil))
			assert.Contains(t, out.String(), "9191")
		})
	}

	configFormat = "xml"
	t.Cleanup(func() { configFormat = "toml" })
	require.Error(t, runAmShow(amShowCmd, nil))
}

func TestAmGet(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	am.Reset()
	t.Cleanup(am.Reset)

	var out bytes.Buffer
	amGetCmd.SetOut(&out)
	t.Cleanup(func() { amGetCmd.SetOut(nil) })

	require.NoError(t, runAmGet(amGetCmd, []string{"database.path"}))
	assert.Equal(t, "monuments.db\n", out.String())

	require.Error(t, runAmGet(amGetCmd, []string{"no.such.key"}))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bucket_diameter_cm: 30
tap_diameter_mm: 40
initial_fill_cm: 45
viscosity: high
nats_url: nats://bench:4222
`), 0o644))

	rig, err := LoadRig(path)
	require.NoError(t, err)

	assert.Equal(t, 30.0, rig.BucketDiameterCm)
	assert.Equal(t, 40.0, rig.TapDiameterMm)
	assert.Equal(t, 45.0, rig.InitialFillCm)
	assert.Equal(t, "high", rig.Viscosity)
	assert.Equal(t, "nats://bench:4222", rig.NATSURL)
	assert.Zero(t, rig.BucketHeightCm, "unset fields stay zero")
}

func TestLoadRigMissingFile(t *testing.T) {
	_, err := LoadRig("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadRigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bucket_diameter_cm: [oops"), 0o644))

	_, err := LoadRig(path)
	assert.Error(t, err)
}

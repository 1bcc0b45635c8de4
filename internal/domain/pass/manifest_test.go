package pass

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// upperDigest is a readable stand-in for a real digest function.
func upperDigest(content []byte) string {
	return strings.ToUpper(string(content))
}

// TestBuildManifest_Order checks static assets, barcodes and descriptor keep archive order.
func TestBuildManifest_Order(t *testing.T) {
	t.Parallel()

	assets := []Asset{
		{Name: "icon.png", Content: []byte("icon")},
		{Name: "en.lproj/pass.strings", Content: []byte("strings")},
	}
	barcodes := []Asset{
		{Name: "strip.png", Content: []byte("s1")},
		{Name: "strip@2x.png", Content: []byte("s2")},
		{Name: "strip@3x.png", Content: []byte("s3")},
	}

	manifest, err := BuildManifest(upperDigest, assets, barcodes, []byte("pass"))
	require.NoError(t, err)
	require.Equal(t, 6, manifest.Len())
	require.Equal(t,
		[]string{"icon.png", "en.lproj/pass.strings", "strip.png", "strip@2x.png", "strip@3x.png", "pass.json"},
		manifest.Names(),
	)

	digest, ok := manifest.Digest(DescriptorFilename)
	require.True(t, ok)
	require.Equal(t, "PASS", digest)

	data, err := manifest.Serialize()
	require.NoError(t, err)
	require.Equal(t,
		`{"icon.png":"ICON","en.lproj/pass.strings":"STRINGS","strip.png":"S1","strip@2x.png":"S2",`+
			`"strip@3x.png":"S3","pass.json":"PASS"}`,
		string(data),
	)
}

// TestBuildManifest_MissingInputs asserts every missing input yields a ManifestError.
func TestBuildManifest_MissingInputs(t *testing.T) {
	t.Parallel()

	barcodes := []Asset{{Name: "strip.png", Content: []byte("s1")}}

	_, err := BuildManifest(upperDigest, nil, nil, []byte("pass"))
	require.Equal(t, StageManifest, StageOf(err))

	_, err = BuildManifest(upperDigest, nil, barcodes, nil)
	require.Equal(t, StageManifest, StageOf(err))

	_, err = BuildManifest(upperDigest, nil, []Asset{{Name: "strip.png"}}, []byte("pass"))

	var manifestErr *ManifestError

	require.True(t, errors.As(err, &manifestErr))
	require.Equal(t, "strip.png", manifestErr.Entry)

	_, err = BuildManifest(nil, nil, barcodes, []byte("pass"))
	require.Error(t, err)
}

// TestManifest_AddRejectsDuplicatesAndReservedNames guards the key set invariant.
func TestManifest_AddRejectsDuplicatesAndReservedNames(t *testing.T) {
	t.Parallel()

	manifest := NewManifest()
	require.NoError(t, manifest.Add("icon.png", "a"))
	require.Error(t, manifest.Add("icon.png", "b"))
	require.Error(t, manifest.Add(ManifestFilename, "c"))
	require.Error(t, manifest.Add(SignatureFilename, "d"))
	require.Error(t, manifest.Add("", "e"))
	require.Error(t, manifest.Add("logo.png", ""))
	require.Equal(t, 1, manifest.Len())
}

// TestManifest_SerializeIsStable checks byte stability across calls and JSON decoding.
func TestManifest_SerializeIsStable(t *testing.T) {
	t.Parallel()

	manifest := NewManifest()
	require.NoError(t, manifest.Add("z.png", "1"))
	require.NoError(t, manifest.Add("a.png", "2"))

	first, err := manifest.Serialize()
	require.NoError(t, err)

	second, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.Equal(t, first, second)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(first, &decoded))
	require.Equal(t, []string{"z.png", "a.png"}, decoded.Names())
}

// TestStageOf maps typed errors to their pipeline stage.
func TestStageOf(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")

	require.Equal(t, StageRender, StageOf(&RenderError{Scale: 2, Err: cause}))
	require.Equal(t, StageManifest, StageOf(&ManifestError{Err: cause}))
	require.Equal(t, StageSignature, StageOf(&SignatureError{Op: "sign", Err: cause}))
	require.Equal(t, StageAssembly, StageOf(&AssemblyError{Entry: "icon.png", Err: cause}))
	require.Equal(t, StageUnknown, StageOf(cause))
	require.ErrorIs(t, &AssemblyError{Err: cause}, cause)
}

// TestAllowlist covers membership of default names and rejection of everything else.
func TestAllowlist(t *testing.T) {
	t.Parallel()

	allowlist := DefaultAllowlist()
	require.True(t, allowlist.Allows("en.lproj/pass.strings"))
	require.True(t, allowlist.Allows("en.lproj"))
	require.False(t, allowlist.Allows("README.md"))
	require.False(t, allowlist.Allows("strip.png"))
}

package pass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// errMissingContent is returned when an entry has no bytes to digest.
	errMissingContent = errors.New("content is missing")
	// errMissingName is returned when an entry has no name.
	errMissingName = errors.New("entry name is missing")
	// errDuplicateEntry is returned when the same name is added twice.
	errDuplicateEntry = errors.New("duplicate entry")
	// errReservedEntry is returned for names the package reserves for itself.
	errReservedEntry = errors.New("reserved entry name")
)

// DigestFunc turns entry content into its manifest digest.
type DigestFunc func(content []byte) string

// Manifest maps every archive entry name to the digest of its bytes.
// Keys keep insertion order so the serialized form is stable.
type Manifest struct {
	names   []string
	digests map[string]string
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		digests: make(map[string]string),
	}
}

// BuildManifest digests the package inputs in archive order: static assets,
// barcode images, then the descriptor.
func BuildManifest(digest DigestFunc, assets, barcodes []Asset, descriptor []byte) (*Manifest, error) {
	if digest == nil {
		return nil, &ManifestError{Err: errors.New("digest function is not set")}
	}

	if len(barcodes) == 0 {
		return nil, &ManifestError{Err: errors.New("barcode images are missing")}
	}

	if len(descriptor) == 0 {
		return nil, &ManifestError{Entry: DescriptorFilename, Err: errMissingContent}
	}

	manifest := NewManifest()

	for _, group := range [][]Asset{assets, barcodes} {
		for _, asset := range group {
			if asset.Content == nil {
				return nil, &ManifestError{Entry: asset.Name, Err: errMissingContent}
			}

			if err := manifest.Add(asset.Name, digest(asset.Content)); err != nil {
				return nil, err
			}
		}
	}

	if err := manifest.Add(DescriptorFilename, digest(descriptor)); err != nil {
		return nil, err
	}

	return manifest, nil
}

// Add appends an entry. Names must be unique and must not be one of the
// entries the package writes after the manifest.
func (m *Manifest) Add(name, digest string) error {
	switch {
	case name == "":
		return &ManifestError{Err: errMissingName}
	case name == ManifestFilename || name == SignatureFilename:
		return &ManifestError{Entry: name, Err: errReservedEntry}
	case digest == "":
		return &ManifestError{Entry: name, Err: errMissingContent}
	}

	if _, found := m.digests[name]; found {
		return &ManifestError{Entry: name, Err: errDuplicateEntry}
	}

	m.names = append(m.names, name)
	m.digests[name] = digest

	return nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.names)
}

// Names returns entry names in insertion order.
func (m *Manifest) Names() []string {
	return append([]string(nil), m.names...)
}

// Digest returns the digest recorded for name.
func (m *Manifest) Digest(name string) (string, bool) {
	digest, ok := m.digests[name]

	return digest, ok
}

// MarshalJSON renders the manifest as a JSON object in insertion order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("encode manifest key: %w", err)
		}

		value, err := json.Marshal(m.digests[name])
		if err != nil {
			return nil, fmt.Errorf("encode manifest value: %w", err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON parses a manifest, keeping the key order of the document.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("decode manifest: expected an object")
	}

	parsed := NewManifest()

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("decode manifest key: %w", err)
		}

		key, _ := keyToken.(string)

		var value string
		if err = decoder.Decode(&value); err != nil {
			return fmt.Errorf("decode manifest value for %q: %w", key, err)
		}

		if err = parsed.Add(key, value); err != nil {
			return err
		}
	}

	*m = *parsed

	return nil
}

// Serialize returns the canonical bytes that get signed and archived.
func (m *Manifest) Serialize() ([]byte, error) {
	return m.MarshalJSON()
}

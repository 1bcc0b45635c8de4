package pass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CredentialFieldKey is the auxiliary field that carries the credential value.
const CredentialFieldKey = "mobile_barcode"

// credentialFieldLabel is the label shown next to the credential value.
const credentialFieldLabel = "Mobile Barcode"

// errDescriptorIncomplete is returned when a required descriptor field is empty.
var errDescriptorIncomplete = errors.New("descriptor field is required")

// Descriptor is the pass.json document. Field order matches the JSON key
// order the wallet receives.
type Descriptor struct {
	Description                string     `json:"description"                          yaml:"description"`
	FormatVersion              int        `json:"formatVersion"                        yaml:"format_version"`
	OrganizationName           string     `json:"organizationName"                     yaml:"organization_name"`
	PassTypeIdentifier         string     `json:"passTypeIdentifier"                   yaml:"pass_type_identifier"`
	SerialNumber               string     `json:"serialNumber"                         yaml:"serial_number"`
	TeamIdentifier             string     `json:"teamIdentifier"                       yaml:"team_identifier"`
	BackgroundColor            string     `json:"backgroundColor"                      yaml:"background_color"`
	ForegroundColor            string     `json:"foregroundColor"                      yaml:"foreground_color"`
	AssociatedStoreIdentifiers []int64    `json:"associatedStoreIdentifiers,omitempty" yaml:"associated_store_identifiers"`
	LogoText                   string     `json:"logoText"                             yaml:"logo_text"`
	StoreCard                  *StoreCard `json:"storeCard,omitempty"                  yaml:"-"`
}

// StoreCard is the store card style section of a pass.
type StoreCard struct {
	AuxiliaryFields []Field `json:"auxiliaryFields"`
}

// Field is a single key/value row shown on the pass.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// DefaultDescriptor returns the template used when the configuration does
// not override it.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Description:                "Mobile Barcode Pass",
		FormatVersion:              1,
		OrganizationName:           "Bit Loom Studio",
		PassTypeIdentifier:         "pass.io.bitloom.mobilebarcode",
		SerialNumber:               "1",
		TeamIdentifier:             "HVF94R44Q6",
		BackgroundColor:            "rgb(255, 255, 255)",
		ForegroundColor:            "rgb(0, 0, 0)",
		AssociatedStoreIdentifiers: []int64{6502254130},
		LogoText:                   "Mobile Barcode Pass",
	}
}

// WithCredential returns a copy of the template carrying value in its
// store card. The receiver is left untouched so one template can serve
// concurrent requests.
func (d Descriptor) WithCredential(value string) Descriptor {
	result := d
	result.AssociatedStoreIdentifiers = append([]int64(nil), d.AssociatedStoreIdentifiers...)
	result.StoreCard = &StoreCard{
		AuxiliaryFields: []Field{
			{
				Key:   CredentialFieldKey,
				Value: value,
				Label: credentialFieldLabel,
			},
		},
	}

	return result
}

// Render serializes the descriptor to compact JSON without HTML escaping.
func (d Descriptor) Render() ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(d); err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}

	// Encoder terminates each value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Validate reports the first identity field a wallet would reject as missing.
func (d Descriptor) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"description", d.Description},
		{"organization_name", d.OrganizationName},
		{"pass_type_identifier", d.PassTypeIdentifier},
		{"serial_number", d.SerialNumber},
		{"team_identifier", d.TeamIdentifier},
	}

	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w: %s", errDescriptorIncomplete, field.name)
		}
	}

	if d.FormatVersion < 1 {
		return fmt.Errorf("%w: format_version", errDescriptorIncomplete)
	}

	return nil
}

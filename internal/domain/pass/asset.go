package pass

// Fixed archive entry names outside the allowlist mechanism.
const (
	// DescriptorFilename is the pass descriptor entry.
	DescriptorFilename = "pass.json"
	// ManifestFilename is the digest manifest entry.
	ManifestFilename = "manifest.json"
	// SignatureFilename is the detached signature entry.
	SignatureFilename = "signature"

	// PackageFilename is the suggested download name of a built package.
	PackageFilename = "mobile-barcode-pass.pkpass"
	// PackageMediaType is the media type a package is served with.
	PackageMediaType = "application/zip"
)

// Asset is a named file that goes into the package verbatim.
type Asset struct {
	// Name is the slash-separated path inside the archive.
	Name string
	// Content is the exact byte sequence that is digested and archived.
	Content []byte
}

// Allowlist is the set of template paths admitted into a package.
// Directory names in the set only allow descending into them.
type Allowlist map[string]struct{}

// NewAllowlist builds an allowlist from the given names.
func NewAllowlist(names ...string) Allowlist {
	allowlist := make(Allowlist, len(names))
	for _, name := range names {
		allowlist[name] = struct{}{}
	}

	return allowlist
}

// DefaultAllowlist returns the template paths a mobile barcode pass ships.
func DefaultAllowlist() Allowlist {
	return NewAllowlist(
		"en.lproj",
		"en.lproj/pass.strings",
		"zh-Hant.lproj",
		"zh-Hant.lproj/pass.strings",
		"icon.png",
		"icon@2x.png",
		"icon@3x.png",
		"logo.png",
		"logo@2x.png",
		"logo@3x.png",
	)
}

// Allows reports whether name may enter the package.
func (a Allowlist) Allows(name string) bool {
	_, ok := a[name]

	return ok
}

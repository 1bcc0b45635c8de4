// Package pass holds the domain model of a wallet pass package:
// static assets and the allowlist that admits them, the pass.json
// descriptor, the ordered manifest of entry digests, and the typed
// errors each pipeline stage reports.
//
// Everything here is plain data. Rendering, signing and archiving live in
// their own packages and exchange values defined here.
package pass

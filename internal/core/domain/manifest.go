package domain

// Manifest is a fixture bundle of schemas, index definitions and documents.
type Manifest struct {
	Schemas   []*Schema    `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Indexes   []QueryIndex `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Documents []Document   `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// ManifestResult counts what a manifest load applied.
type ManifestResult struct {
	Schemas   int
	Indexes   int
	Documents int
}

// Package kdi models the findings import document consumed by the
// vulnerability-management platform: assets carrying vulnerability
// observations, plus the vulnerability definitions they reference.
//
// Optional attributes are pointers tagged omitempty. A field that was never
// set is left out of the encoded document; it is never written as null.
package kdi

import "time"

// DefaultVersion is the import schema version written when none is configured.
const DefaultVersion = 2

// Document is one upload-ready import file.
type Document struct {
	SkipAutoclose bool      `json:"skip_autoclose"`
	Version       int       `json:"version"`
	Assets        []Asset   `json:"assets"`
	VulnDefs      []VulnDef `json:"vuln_defs"`
}

// Asset identifies a device. Duplicate assets across findings are expected;
// the platform merges them on ingestion.
type Asset struct {
	IPAddress  *string  `json:"ip_address,omitempty"`
	MACAddress *string  `json:"mac_address,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Vulns      []Vuln   `json:"vulns"`
}

// Vuln is a vulnerability observed on an asset. It references its
// definition through VulnDefName.
type Vuln struct {
	ScannerIdentifier string     `json:"scanner_identifier"`
	ScannerType       string     `json:"scanner_type"`
	ScannerScore      *int       `json:"scanner_score,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LastSeenAt        *time.Time `json:"last_seen_at,omitempty"`
	Status            *string    `json:"status,omitempty"`
	VulnDefName       string     `json:"vuln_def_name"`
}

// VulnDef describes a vulnerability, keyed by name.
type VulnDef struct {
	ScannerType       string  `json:"scanner_type"`
	ScannerIdentifier string  `json:"scanner_identifier"`
	Name              string  `json:"name"`
	CVEIdentifiers    *string `json:"cve_identifiers,omitempty"`
	Solution          *string `json:"solution,omitempty"`
}

// Package mapper converts Armis findings into import records.
// Every function here is pure: no I/O and no shared state.
package mapper

import (
	"strings"
	"time"

	"github.com/openctemio/connector/internal/armis"
	"github.com/openctemio/connector/internal/kdi"
	"github.com/openctemio/connector/pkg/htmlstrip"
)

// ScannerType identifies this source on every observation and definition.
const ScannerType = "Armis"

// NoSolution is the solution text used when the vendor has no mitigations.
const NoSolution = "No solution provided by vendor"

// scores maps vendor severity labels to scanner scores.
var scores = map[string]int{
	"Low":      3,
	"Medium":   6,
	"High":     8,
	"Critical": 10,
}

// Score returns the scanner score for a severity label.
// ok is false for labels outside the table.
func Score(severity string) (score int, ok bool) {
	score, ok = scores[severity]
	return score, ok
}

// ToAsset builds the asset record for the device a finding was observed on.
func ToAsset(f armis.Finding) kdi.Asset {
	asset := kdi.Asset{
		IPAddress:  copyString(f.IPAddress),
		MACAddress: copyString(f.MACAddress),
	}

	for _, tag := range []struct {
		prefix string
		value  *string
	}{
		{"Vendor", f.Vendor},
		{"Type", f.Type},
		{"Model", f.Model},
		{"Class", f.Class},
	} {
		if tag.value != nil {
			asset.Tags = append(asset.Tags, tag.prefix+":"+*tag.value)
		}
	}

	return asset
}

// ToObservation builds the vulnerability observation for a finding.
func ToObservation(f armis.Finding) kdi.Vuln {
	vuln := kdi.Vuln{
		ScannerIdentifier: f.VulnerabilityName,
		ScannerType:       ScannerType,
		CreatedAt:         epochToTime(f.FirstSeen),
		LastSeenAt:        epochToTime(f.LastSeen),
		Status:            copyString(f.Status),
		VulnDefName:       f.VulnerabilityName,
	}
	if score, ok := Score(f.Severity); ok {
		vuln.ScannerScore = &score
	}
	return vuln
}

// ToDefinition builds the vulnerability definition for a finding from the
// mitigations looked up for its name.
func ToDefinition(f armis.Finding, mitigations []armis.Mitigation) kdi.VulnDef {
	def := kdi.VulnDef{
		ScannerType:       ScannerType,
		ScannerIdentifier: f.VulnerabilityName,
		Name:              f.VulnerabilityName,
	}
	if strings.HasPrefix(f.VulnerabilityName, "CVE") {
		cve := f.VulnerabilityName
		def.CVEIdentifiers = &cve
	}

	solution := htmlstrip.Strip(Solution(mitigations))
	def.Solution = &solution

	return def
}

// Solution renders mitigations as one line each,
// "<name> - <item descriptions joined by "; ">". A mitigation without items
// renders as "<name> - ".
func Solution(mitigations []armis.Mitigation) string {
	if len(mitigations) == 0 {
		return NoSolution
	}

	lines := make([]string, 0, len(mitigations))
	for _, m := range mitigations {
		descriptions := make([]string, 0, len(m.Items))
		for _, item := range m.Items {
			descriptions = append(descriptions, item.Description)
		}
		lines = append(lines, m.Name+" - "+strings.Join(descriptions, "; "))
	}
	return strings.Join(lines, "\n")
}

// epochToTime drops timestamps whose year falls outside what RFC 3339 can
// encode, such as milliseconds sent where seconds are expected.
func epochToTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	if y := t.Year(); y < 0 || y > 9999 {
		return nil
	}
	return &t
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/connector/internal/armis"
)

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }

func TestToObservation_SeverityScores(t *testing.T) {
	tests := []struct {
		severity  string
		wantScore *int
	}{
		{severity: "Low", wantScore: intPtr(3)},
		{severity: "Medium", wantScore: intPtr(6)},
		{severity: "High", wantScore: intPtr(8)},
		{severity: "Critical", wantScore: intPtr(10)},
		{severity: "Informational", wantScore: nil},
		{severity: "", wantScore: nil},
		{severity: "CRITICAL", wantScore: nil},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			vuln := ToObservation(armis.Finding{VulnerabilityName: "X", Severity: tt.severity})
			assert.Equal(t, tt.wantScore, vuln.ScannerScore)
		})
	}
}

func intPtr(i int) *int { return &i }

func TestToObservation_UnknownSeverityOmitsScoreField(t *testing.T) {
	vuln := ToObservation(armis.Finding{VulnerabilityName: "X", Severity: "Unknown"})

	data, err := json.Marshal(vuln)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "scanner_score")
}

func TestToObservation_Fields(t *testing.T) {
	f := armis.Finding{
		VulnerabilityName: "CVE-2023-0001",
		Severity:          "High",
		FirstSeen:         i64Ptr(1700000000),
		LastSeen:          i64Ptr(1700086400),
		Status:            strPtr("Open"),
	}

	vuln := ToObservation(f)

	assert.Equal(t, "CVE-2023-0001", vuln.ScannerIdentifier)
	assert.Equal(t, ScannerType, vuln.ScannerType)
	assert.Equal(t, "CVE-2023-0001", vuln.VulnDefName)
	require.NotNil(t, vuln.CreatedAt)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), *vuln.CreatedAt)
	require.NotNil(t, vuln.LastSeenAt)
	assert.Equal(t, time.Date(2023, 11, 15, 22, 13, 20, 0, time.UTC), *vuln.LastSeenAt)
	require.NotNil(t, vuln.Status)
	assert.Equal(t, "Open", *vuln.Status)
}

func TestToObservation_MissingTimestamps(t *testing.T) {
	vuln := ToObservation(armis.Finding{VulnerabilityName: "X", Severity: "Low"})
	assert.Nil(t, vuln.CreatedAt)
	assert.Nil(t, vuln.LastSeenAt)
	assert.Nil(t, vuln.Status)
}

func TestToObservation_OutOfRangeTimestampsAreDropped(t *testing.T) {
	vuln := ToObservation(armis.Finding{
		VulnerabilityName: "CVE-2024-0002",
		Severity:          "Medium",
		FirstSeen:         i64Ptr(1_700_000_000_000_000),
		LastSeen:          i64Ptr(-100_000_000_000),
	})

	assert.Nil(t, vuln.CreatedAt)
	assert.Nil(t, vuln.LastSeenAt)

	data, err := json.Marshal(vuln)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "created_at")
}

func TestEpochToTime_Bounds(t *testing.T) {
	assert.NotNil(t, epochToTime(i64Ptr(253402300799)), "9999-12-31T23:59:59Z")
	assert.Nil(t, epochToTime(i64Ptr(253402300800)), "10000-01-01T00:00:00Z")
	assert.NotNil(t, epochToTime(i64Ptr(0)))
}

func TestToDefinition_CVEIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		wantCVE *string
	}{
		{name: "CVE-2023-0001", wantCVE: strPtr("CVE-2023-0001")},
		{name: "Weak-TLS-Config", wantCVE: nil},
		{name: "cve-2023-0001", wantCVE: nil},
		{name: "CVE", wantCVE: strPtr("CVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := ToDefinition(armis.Finding{VulnerabilityName: tt.name}, nil)
			assert.Equal(t, tt.wantCVE, def.CVEIdentifiers)
			assert.Equal(t, tt.name, def.Name)
		})
	}
}

func TestToDefinition_NoCVEOmitsField(t *testing.T) {
	def := ToDefinition(armis.Finding{VulnerabilityName: "Weak-TLS-Config"}, nil)

	data, err := json.Marshal(def)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cve_identifiers")
}

func TestSolution(t *testing.T) {
	tests := []struct {
		name        string
		mitigations []armis.Mitigation
		want        string
	}{
		{
			name:        "no mitigations",
			mitigations: []armis.Mitigation{},
			want:        "No solution provided by vendor",
		},
		{
			name:        "nil mitigations",
			mitigations: nil,
			want:        "No solution provided by vendor",
		},
		{
			name: "single mitigation with items",
			mitigations: []armis.Mitigation{
				{Name: "Patch", Items: []armis.MitigationItem{{Description: "Update firmware"}, {Description: "Reboot"}}},
			},
			want: "Patch - Update firmware; Reboot",
		},
		{
			name: "mitigation without items keeps separator",
			mitigations: []armis.Mitigation{
				{Name: "Isolate"},
			},
			want: "Isolate - ",
		},
		{
			name: "multiple mitigations joined by newline",
			mitigations: []armis.Mitigation{
				{Name: "Patch", Items: []armis.MitigationItem{{Description: "Update firmware"}}},
				{Name: "Segment", Items: []armis.MitigationItem{{Description: "Move to IoT VLAN"}}},
			},
			want: "Patch - Update firmware\nSegment - Move to IoT VLAN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Solution(tt.mitigations))
		})
	}
}

func TestToDefinition_StripsHTMLFromSolution(t *testing.T) {
	def := ToDefinition(armis.Finding{VulnerabilityName: "X"}, []armis.Mitigation{
		{Name: "Patch", Items: []armis.MitigationItem{{Description: "Install <b>v2.1</b>"}, {Description: "<a href=\"#\">Reboot</a>"}}},
	})

	require.NotNil(t, def.Solution)
	assert.Equal(t, "Patch - Install v2.1; Reboot", *def.Solution)
}

func TestToAsset(t *testing.T) {
	tests := []struct {
		name    string
		finding armis.Finding
		wantIP  *string
		wantMAC *string
		want    []string
	}{
		{
			name: "all fields",
			finding: armis.Finding{
				IPAddress:  strPtr("10.0.0.5"),
				MACAddress: strPtr("aa:bb:cc:dd:ee:ff"),
				Vendor:     strPtr("Acme"),
				Type:       strPtr("Camera"),
				Model:      strPtr("X1"),
				Class:      strPtr("IoT"),
			},
			wantIP:  strPtr("10.0.0.5"),
			wantMAC: strPtr("aa:bb:cc:dd:ee:ff"),
			want:    []string{"Vendor:Acme", "Type:Camera", "Model:X1", "Class:IoT"},
		},
		{
			name:    "only model and class",
			finding: armis.Finding{Model: strPtr("X1"), Class: strPtr("IoT")},
			want:    []string{"Model:X1", "Class:IoT"},
		},
		{
			name:    "no device metadata",
			finding: armis.Finding{IPAddress: strPtr("10.0.0.5")},
			wantIP:  strPtr("10.0.0.5"),
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := ToAsset(tt.finding)
			assert.Equal(t, tt.wantIP, asset.IPAddress)
			assert.Equal(t, tt.wantMAC, asset.MACAddress)
			assert.Equal(t, tt.want, asset.Tags)
		})
	}
}

func TestToAsset_ModelAndClassOnlySerialization(t *testing.T) {
	asset := ToAsset(armis.Finding{Model: strPtr("M"), Class: strPtr("C")})

	data, err := json.Marshal(asset)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{"Model:M", "Class:C"}, raw["tags"])
	assert.NotContains(t, raw, "ip_address")
	assert.NotContains(t, raw, "mac_address")
}

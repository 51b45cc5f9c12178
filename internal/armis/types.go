package armis

import (
	"net/url"
	"strconv"
)

// SeverityFilter restricts findings to one severity.
type SeverityFilter string

const (
	SeverityFilterLow      SeverityFilter = "LOW"
	SeverityFilterMedium   SeverityFilter = "MEDIUM"
	SeverityFilterHigh     SeverityFilter = "HIGH"
	SeverityFilterCritical SeverityFilter = "CRITICAL"
)

// SeverityFilters returns all accepted severity filter values.
func SeverityFilters() []SeverityFilter {
	return []SeverityFilter{SeverityFilterLow, SeverityFilterMedium, SeverityFilterHigh, SeverityFilterCritical}
}

// IsValid checks if the severity filter is one of the accepted values.
func (s SeverityFilter) IsValid() bool {
	switch s {
	case SeverityFilterLow, SeverityFilterMedium, SeverityFilterHigh, SeverityFilterCritical:
		return true
	default:
		return false
	}
}

// StatusFilter restricts findings to one lifecycle status.
type StatusFilter string

const (
	StatusFilterOpen       StatusFilter = "OPEN"
	StatusFilterInProgress StatusFilter = "IN_PROGRESS"
	StatusFilterResolved   StatusFilter = "RESOLVED"
	StatusFilterSuppressed StatusFilter = "SUPPRESSED"
)

// StatusFilters returns all accepted status filter values.
func StatusFilters() []StatusFilter {
	return []StatusFilter{StatusFilterOpen, StatusFilterInProgress, StatusFilterResolved, StatusFilterSuppressed}
}

// IsValid checks if the status filter is one of the accepted values.
func (s StatusFilter) IsValid() bool {
	switch s {
	case StatusFilterOpen, StatusFilterInProgress, StatusFilterResolved, StatusFilterSuppressed:
		return true
	default:
		return false
	}
}

// Filter holds the query parameters of a findings request.
// Empty values are left out of the query string.
type Filter struct {
	Severity  SeverityFilter
	Status    StatusFilter
	Name      string
	DeviceMAC string
	PageSize  int
}

// Query encodes the filter. Page 0 is the API default and is not sent.
func (f Filter) Query(page int) url.Values {
	q := url.Values{}
	if f.Severity != "" {
		q.Set("severity", string(f.Severity))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.DeviceMAC != "" {
		q.Set("device_mac", f.DeviceMAC)
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// FindingsPage is one page of the vulnerabilities listing.
type FindingsPage struct {
	Total           int       `json:"total"`
	Page            int       `json:"page"`
	Vulnerabilities []Finding `json:"vulnerabilities"`
}

// Finding is a vulnerability reported on one device.
// Optional attributes are pointers: nil means the API did not send the field.
type Finding struct {
	VulnerabilityName string  `json:"vulnerability_name"`
	Severity          string  `json:"severity"`
	FirstSeen         *int64  `json:"first_seen,omitempty"`
	LastSeen          *int64  `json:"last_seen,omitempty"`
	Status            *string `json:"status,omitempty"`
	IPAddress         *string `json:"ip_address,omitempty"`
	MACAddress        *string `json:"mac_address,omitempty"`
	Vendor            *string `json:"vendor,omitempty"`
	Type              *string `json:"type,omitempty"`
	Model             *string `json:"model,omitempty"`
	Class             *string `json:"class,omitempty"`
}

// MitigationsResponse is the body of a mitigation lookup.
type MitigationsResponse struct {
	Mitigations []Mitigation `json:"mitigations"`
}

// Mitigation is vendor remediation guidance for a vulnerability.
type Mitigation struct {
	Name  string           `json:"name"`
	Items []MitigationItem `json:"items"`
}

// MitigationItem is one remediation step.
type MitigationItem struct {
	Description string `json:"description"`
}

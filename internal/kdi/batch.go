package kdi

// Batch accumulates the records mapped from one page of findings.
// It is not safe for concurrent use.
type Batch struct {
	assets   []Asset
	vulns    []Vuln
	vulnDefs []VulnDef
}

// Add appends the three records mapped from a single finding.
func (b *Batch) Add(asset Asset, vuln Vuln, def VulnDef) {
	b.assets = append(b.assets, asset)
	b.vulns = append(b.vulns, vuln)
	b.vulnDefs = append(b.vulnDefs, def)
}

// Len returns the number of findings added since the last Reset.
func (b *Batch) Len() int {
	return len(b.assets)
}

// Reset empties the batch for the next page.
func (b *Batch) Reset() {
	b.assets = nil
	b.vulns = nil
	b.vulnDefs = nil
}

// Document builds the import document for the accumulated records. Each
// asset carries the observation mapped from the same finding. Definitions
// are listed once per name, first occurrence wins.
func (b *Batch) Document(skipAutoclose bool, version int) Document {
	if version == 0 {
		version = DefaultVersion
	}

	doc := Document{
		SkipAutoclose: skipAutoclose,
		Version:       version,
		Assets:        make([]Asset, 0, len(b.assets)),
		VulnDefs:      make([]VulnDef, 0, len(b.vulnDefs)),
	}

	for i, asset := range b.assets {
		asset.Vulns = append([]Vuln(nil), asset.Vulns...)
		asset.Vulns = append(asset.Vulns, b.vulns[i])
		doc.Assets = append(doc.Assets, asset)
	}

	seen := make(map[string]struct{}, len(b.vulnDefs))
	for _, def := range b.vulnDefs {
		if _, ok := seen[def.Name]; ok {
			continue
		}
		seen[def.Name] = struct{}{}
		doc.VulnDefs = append(doc.VulnDefs, def)
	}

	return doc
}

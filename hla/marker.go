// Package hla defines the marker naming scheme and the fixed gene panel
// shared by the imputation pipeline packages.
package hla

// MarkerPrefix starts every synthetic HLA-allele marker emitted by the
// imputation reference panel, e.g. "HLA_DRB1_0101".
const MarkerPrefix = "HLA_"

// Unresolved is the label used for a genotype slot that could not be called.
const Unresolved = "-"

// Panel is the fixed list of genes reported per participant, in deliverable
// column order.
var Panel = []string{"A", "B", "C", "DPA1", "DPB1", "DQA1", "DQB1", "DRB1"}

// Marker is a parsed synthetic HLA-allele marker identifier.
type Marker struct {
	// ID is the raw marker identifier, e.g. "HLA_DRB1_0101".
	ID string
	// Gene is the HLA gene, e.g. "DRB1".
	Gene string
	// AlleleType is the colon-inserted four-digit subtype, e.g. "01:01".
	AlleleType string
}

// ParseMarker parses a marker identifier of the form HLA_<GENE>_<4-digit
// subtype>. The second return value is false for non-HLA identifiers and for
// markers whose subtype is not exactly four digits (two-digit resolution
// markers from the same panel are deliberately skipped).
func ParseMarker(id string) (Marker, bool) {
	if len(id) <= len(MarkerPrefix) || id[:len(MarkerPrefix)] != MarkerPrefix {
		return Marker{}, false
	}
	rest := id[len(MarkerPrefix):]
	// The subtype follows the last underscore; the gene is everything before
	// it.
	sep := -1
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '_' {
			sep = i
			break
		}
	}
	if sep <= 0 || sep == len(rest)-1 {
		return Marker{}, false
	}
	gene := rest[:sep]
	subtype := rest[sep+1:]
	if len(subtype) != 4 {
		return Marker{}, false
	}
	for i := 0; i < len(subtype); i++ {
		if subtype[i] < '0' || subtype[i] > '9' {
			return Marker{}, false
		}
	}
	return Marker{
		ID:         id,
		Gene:       gene,
		AlleleType: subtype[:2] + ":" + subtype[2:],
	}, true
}

// AlleleLabel formats one called allele as it appears in the deliverable,
// e.g. AlleleLabel("DRB1", "01:01") == "HLA-DRB1*01:01".
func AlleleLabel(gene, alleleType string) string {
	return "HLA-" + gene + "*" + alleleType
}

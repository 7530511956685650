package genotype

import (
	"sort"

	"github.com/dsugurtuna/hla-pipeline-manager/hla"
)

// HomozygousThreshold is the pooled-dosage level above which (strictly) a
// single allele type is called on both chromosomes. This is the clinical
// call policy and must not drift.
const HomozygousThreshold = 1.5

// CallCategory is the four-way genotype call classification.
type CallCategory int

const (
	// Negative: no allele type accumulated any dosage for the gene.
	Negative CallCategory = iota
	// Homozygous: the best type's pooled dosage exceeds HomozygousThreshold.
	Homozygous
	// Heterozygous: two distinct types observed, neither homozygous.
	Heterozygous
	// SingleCall: exactly one type observed at dosage <= HomozygousThreshold;
	// the second slot stays unresolved.
	SingleCall
)

func (c CallCategory) String() string {
	switch c {
	case Negative:
		return "negative"
	case Homozygous:
		return "homozygous"
	case Heterozygous:
		return "heterozygous"
	case SingleCall:
		return "single-call"
	}
	return "invalid"
}

// GenotypeCall is the diploid call for one gene of one participant. Allele1
// and Allele2 are deliverable-formatted labels ("HLA-DRB1*01:01") or
// hla.Unresolved.
type GenotypeCall struct {
	Gene     string
	Allele1  string
	Allele2  string
	Category CallCategory
}

// String renders the call as it appears in a deliverable cell.
func (g GenotypeCall) String() string { return g.Allele1 + "/" + g.Allele2 }

// Classify produces the genotype call for gene from accumulated dosage mass.
//
// The two highest-dosage allele types are found under a deterministic order:
// higher pooled dosage first, equal-dosage ties broken by ascending allele
// type, so a given mass always yields the same deliverable cell.
// Classification follows the fixed
// clinical policy: nothing observed → negative; best dosage strictly above
// HomozygousThreshold → homozygous; a second type observed → heterozygous;
// otherwise a single call with one unresolved slot.
func Classify(mass DosageMass, gene string) GenotypeCall {
	type typeDosage struct {
		alleleType string
		dosage     float64
	}
	var observed []typeDosage
	for key, dosage := range mass {
		if key.Gene != gene {
			continue
		}
		observed = append(observed, typeDosage{key.AlleleType, dosage})
	}
	if len(observed) == 0 {
		return GenotypeCall{
			Gene:     gene,
			Allele1:  hla.Unresolved,
			Allele2:  hla.Unresolved,
			Category: Negative,
		}
	}
	sort.Slice(observed, func(i, j int) bool {
		if observed[i].dosage != observed[j].dosage {
			return observed[i].dosage > observed[j].dosage
		}
		return observed[i].alleleType < observed[j].alleleType
	})
	best1 := observed[0]
	label1 := hla.AlleleLabel(gene, best1.alleleType)
	if best1.dosage > HomozygousThreshold {
		return GenotypeCall{Gene: gene, Allele1: label1, Allele2: label1, Category: Homozygous}
	}
	if len(observed) > 1 {
		label2 := hla.AlleleLabel(gene, observed[1].alleleType)
		return GenotypeCall{Gene: gene, Allele1: label1, Allele2: label2, Category: Heterozygous}
	}
	return GenotypeCall{Gene: gene, Allele1: label1, Allele2: hla.Unresolved, Category: SingleCall}
}

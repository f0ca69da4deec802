package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
	"github.com/pharmaguard-pgx-server/pkg/vcf"
)

// TargetGenes is the pharmacogene panel this service analyzes
var TargetGenes = map[string]bool{
	"CYP2D6":  true,
	"CYP2C19": true,
	"CYP2C9":  true,
	"SLCO1B1": true,
	"TPMT":    true,
	"DPYD":    true,
}

// rsidGeneMap maps well-known pharmacogenomic rsIDs to their gene, used when
// a data line carries no GENE key in its INFO field
var rsidGeneMap = map[string]string{
	// CYP2D6
	"rs3892097":  "CYP2D6",
	"rs5030655":  "CYP2D6",
	"rs35742686": "CYP2D6",
	"rs1065852":  "CYP2D6",
	"rs28371725": "CYP2D6",
	"rs16947":    "CYP2D6",
	// CYP2C19
	"rs4244285":  "CYP2C19",
	"rs4986893":  "CYP2C19",
	"rs28399504": "CYP2C19",
	"rs56337013": "CYP2C19",
	"rs12248560": "CYP2C19",
	// CYP2C9
	"rs1799853":  "CYP2C9",
	"rs1057910":  "CYP2C9",
	"rs28371686": "CYP2C9",
	"rs9332131":  "CYP2C9",
	// SLCO1B1
	"rs4149056":  "SLCO1B1",
	"rs2306283":  "SLCO1B1",
	"rs11045819": "SLCO1B1",
	// TPMT
	"rs1800460": "TPMT",
	"rs1142345": "TPMT",
	"rs1800462": "TPMT",
	"rs1800584": "TPMT",
	// DPYD
	"rs3918290":  "DPYD",
	"rs55886062": "DPYD",
	"rs67376798": "DPYD",
	"rs75017182": "DPYD",
}

// IngestorService implements the domain.VCFIngestor interface. It restricts
// parsed records to the target pharmacogene panel and applies the genotype
// zygosity policy: records whose sample is homozygous-reference or no-call do
// not produce variants.
type IngestorService struct {
	logger *logrus.Logger
}

// NewIngestorService creates a new VCF ingestor service
func NewIngestorService(logger *logrus.Logger) *IngestorService {
	return &IngestorService{logger: logger}
}

// Parse ingests VCF text into a ParseResult. Malformed lines are recorded in
// ParseResult.ParseErrors; parsing never fails outright.
func (s *IngestorService) Parse(text string) *domain.ParseResult {
	doc := vcf.Parse(text)

	result := &domain.ParseResult{
		Variants:       []domain.Variant{},
		VariantsByGene: make(map[string][]domain.Variant),
		DetectedGenes:  []string{},
		Metadata:       doc.Metadata,
		ParseErrors:    []string{},
	}

	for _, lerr := range doc.Errors {
		result.ParseErrors = append(result.ParseErrors, lerr.Error())
	}

	for _, record := range doc.Records {
		variant, ok := s.variantFromRecord(&record)
		if !ok {
			continue
		}
		result.Variants = append(result.Variants, *variant)
		result.VariantsByGene[variant.Gene] = append(result.VariantsByGene[variant.Gene], *variant)
	}

	for gene := range result.VariantsByGene {
		result.DetectedGenes = append(result.DetectedGenes, gene)
	}
	sort.Strings(result.DetectedGenes)

	result.TotalVariants = len(result.Variants)
	// Lenient success semantics: a parse with errors still succeeds when it
	// produced at least one variant.
	result.ParsingSuccess = len(result.ParseErrors) == 0 || len(result.Variants) > 0

	s.logger.WithFields(logrus.Fields{
		"total_variants": result.TotalVariants,
		"detected_genes": result.DetectedGenes,
		"parse_errors":   len(result.ParseErrors),
	}).Info("Completed VCF ingestion")

	return result
}

// variantFromRecord converts one VCF record into a Variant. The second return
// value is false when the record is filtered out: wrong gene, or a genotype
// showing the patient does not carry the alternate allele.
func (s *IngestorService) variantFromRecord(record *vcf.Record) (*domain.Variant, bool) {
	genotype, hasGenotype := record.GenotypeOf()
	if hasGenotype && !genotype.Carried() {
		// Homozygous-reference or no-call: the patient does not carry the
		// alternate allele, so the record must not produce a variant.
		s.logger.WithFields(logrus.Fields{
			"rsid":     record.ID,
			"genotype": genotype.Raw,
		}).Debug("Skipping non-carried genotype")
		return nil, false
	}

	rsid := record.ID
	if rsid == "." {
		rsid = ""
	}

	gene := infoValue(record.Info, "GENE", "gene")
	if gene == "" && rsid != "" {
		gene = rsidGeneMap[rsid]
	}
	gene = strings.ToUpper(gene)
	if gene == "" || !TargetGenes[gene] {
		// Out-of-panel genes are silently dropped, not errors.
		return nil, false
	}

	if rsid == "" {
		rsid = fmt.Sprintf("%s:%s", record.Chrom, record.Pos)
	}

	variant := &domain.Variant{
		Chrom:            record.Chrom,
		Pos:              record.Pos,
		RSID:             rsid,
		Ref:              record.Ref,
		Alt:              record.Alt,
		Gene:             gene,
		StarAllele:       normalizeStarAllele(infoValue(record.Info, "STAR", "star")),
		FunctionalStatus: functionalStatus(record.Info),
		Quality:          record.Qual,
		Filter:           record.Filter,
		Info:             record.Info,
		Zygosity:         domain.Heterozygous,
	}

	if hasGenotype {
		variant.Genotype = strings.ReplaceAll(genotype.Raw, "|", "/")
		if genotype.Homozygous() {
			variant.Zygosity = domain.Homozygous
		}
	}
	// Legacy VCFs without FORMAT/SAMPLE columns carry no genotype evidence;
	// the variant is assumed present and heterozygous.

	return variant, true
}

// infoValue returns the first present key from the INFO map
func infoValue(info map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := info[key]; ok && value != "" {
			return value
		}
	}
	return ""
}

// functionalStatus resolves the functional annotation with the documented
// fallback order FUNC, FUNCTION, function
func functionalStatus(info map[string]string) string {
	if value := infoValue(info, "FUNC", "FUNCTION", "function"); value != "" {
		return value
	}
	return "Unknown"
}

// normalizeStarAllele ensures star allele nomenclature carries its "*" prefix,
// so a bare "2" becomes "*2"
func normalizeStarAllele(allele string) string {
	if allele == "" {
		return ""
	}
	if !strings.HasPrefix(allele, "*") {
		return "*" + allele
	}
	return allele
}

// SampleVCF returns a bundled demonstration VCF covering the target panel
func SampleVCF() string {
	return `##fileformat=VCFv4.2
##fileDate=20240101
##source=PharmaGuardTest
##reference=GRCh38
##INFO=<ID=GENE,Number=1,Type=String,Description="Gene name">
##INFO=<ID=STAR,Number=1,Type=String,Description="Star allele">
##INFO=<ID=FUNCTION,Number=1,Type=String,Description="Functional status">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	SAMPLE1
chr22	42522613	rs4244285	G	A	100	PASS	GENE=CYP2C19;STAR=*2;FUNCTION=no_function	GT	0/1
chr22	42523943	rs4986893	G	A	100	PASS	GENE=CYP2C19;STAR=*3;FUNCTION=no_function	GT	0/1
chr22	42526694	rs1065852	G	A	95	PASS	GENE=CYP2D6;STAR=*4;FUNCTION=no_function	GT	0/1
chr12	21331549	rs4149056	T	C	98	PASS	GENE=SLCO1B1;STAR=*5;FUNCTION=decreased_function	GT	0/1
chr6	18143955	rs1800460	C	T	99	PASS	GENE=TPMT;STAR=*3B;FUNCTION=no_function	GT	0/1
chr1	97915614	rs3918290	C	T	97	PASS	GENE=DPYD;STAR=*2A;FUNCTION=no_function	GT	0/1
`
}

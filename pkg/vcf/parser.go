// Package vcf provides lenient parsing of Variant Call Format (VCF) v4.x text.
// The parser never fails on malformed data lines; per-line errors are collected
// so callers can surface them without aborting ingestion.
package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Record represents a single VCF data line
type Record struct {
	Chrom  string
	Pos    string
	ID     string
	Ref    string
	Alt    string
	Qual   string
	Filter string
	Info   map[string]string
	Format string
	Sample string

	// Line is the 1-based line number in the source text
	Line int
}

// LineError represents a recoverable parse failure on one data line
type LineError struct {
	Line    int
	Message string
}

// Error implements the error interface
func (e *LineError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
}

// Document represents the parsed content of a VCF file
type Document struct {
	// Metadata holds "##key=value" header pairs, last write wins
	Metadata map[string]string

	// HeaderColumns holds the "#CHROM ..." column names when present
	HeaderColumns []string

	// Records holds all structurally valid data lines in input order
	Records []Record

	// Errors holds one entry per malformed data line
	Errors []*LineError
}

// Parse parses VCF text into a Document. Data lines are tab-delimited; lines
// that do not split into the 8 mandatory columns on tabs are retried with
// generic whitespace splitting before being recorded as errors.
func Parse(text string) *Document {
	doc := &Document{
		Metadata: make(map[string]string),
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, raw := range lines {
		lineNum := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "##") {
			if idx := strings.Index(line, "="); idx > 2 {
				doc.Metadata[line[2:idx]] = line[idx+1:]
			}
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			doc.HeaderColumns = strings.Split(line[1:], "\t")
			continue
		}

		record, lerr := parseDataLine(line, lineNum)
		if lerr != nil {
			doc.Errors = append(doc.Errors, lerr)
			continue
		}
		doc.Records = append(doc.Records, *record)
	}

	return doc
}

// parseDataLine splits one data line into a Record
func parseDataLine(line string, lineNum int) (*Record, *LineError) {
	parts := strings.Split(line, "\t")
	if len(parts) < 8 {
		parts = strings.Fields(line)
	}
	if len(parts) < 8 {
		return nil, &LineError{Line: lineNum, Message: "insufficient columns"}
	}

	record := &Record{
		Chrom:  parts[0],
		Pos:    parts[1],
		ID:     parts[2],
		Ref:    parts[3],
		Alt:    parts[4],
		Qual:   parts[5],
		Filter: parts[6],
		Info:   ParseInfo(parts[7]),
		Line:   lineNum,
	}
	if len(parts) > 8 {
		record.Format = parts[8]
	}
	if len(parts) > 9 {
		record.Sample = parts[9]
	}

	return record, nil
}

// ParseInfo parses a semicolon-separated INFO field into a map.
// "KEY=VALUE" tokens map key to value; bare flag tokens map to "".
func ParseInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, item := range strings.Split(info, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if key, value, found := strings.Cut(item, "="); found {
			result[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else {
			result[item] = ""
		}
	}
	return result
}

// Genotype represents a parsed GT subfield
type Genotype struct {
	// Raw is the GT value as it appeared in the sample column
	Raw string

	// Alleles holds the parsed integer allele indexes; missing "." entries
	// are skipped
	Alleles []int
}

// GenotypeOf extracts and parses the GT subfield from a record's FORMAT and
// SAMPLE columns. The second return value is false when the record carries
// no usable GT subfield.
func (r *Record) GenotypeOf() (*Genotype, bool) {
	if r.Format == "" || r.Sample == "" {
		return nil, false
	}

	gtIndex := -1
	for i, key := range strings.Split(r.Format, ":") {
		if key == "GT" {
			gtIndex = i
			break
		}
	}
	if gtIndex < 0 {
		return nil, false
	}

	sampleFields := strings.Split(r.Sample, ":")
	if gtIndex >= len(sampleFields) {
		return nil, false
	}

	return ParseGT(sampleFields[gtIndex]), true
}

// ParseGT parses a raw GT value such as "0/1", "1|1" or "./.".
// Phased separators are normalized to unphased before splitting.
func ParseGT(raw string) *Genotype {
	gt := &Genotype{Raw: raw}
	normalized := strings.ReplaceAll(raw, "|", "/")
	for _, token := range strings.Split(normalized, "/") {
		token = strings.TrimSpace(token)
		if token == "" || token == "." {
			continue
		}
		allele, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		gt.Alleles = append(gt.Alleles, allele)
	}
	return gt
}

// Carried reports whether the sample carries at least one non-reference
// allele. Homozygous-reference (0/0) and no-call (./.) genotypes are not
// carried.
func (g *Genotype) Carried() bool {
	for _, allele := range g.Alleles {
		if allele > 0 {
			return true
		}
	}
	return false
}

// Homozygous reports whether both parsed alleles are non-reference
func (g *Genotype) Homozygous() bool {
	if len(g.Alleles) < 2 {
		return false
	}
	for _, allele := range g.Alleles {
		if allele <= 0 {
			return false
		}
	}
	return true
}

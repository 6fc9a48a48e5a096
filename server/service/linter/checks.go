package linter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doclave/doclave/plugin/parser"
)

// mandatorySections must all be present in a compliant SOP.
var mandatorySections = []string{
	"Title", "Purpose", "Scope", "Responsibilities",
	"Definitions", "Procedure", "References",
	"Revision History", "Approvals",
}

// placeholderStrings are prohibited in finished documents.
var placeholderStrings = []string{"TBD", "lorem ipsum", "to be decided", "TODO", "FIXME", "[INSERT", "XXX"}

var requiredApprovals = []string{"Prepared by", "Reviewed by", "Approved by"}

var (
	sopIDPattern   = regexp.MustCompile(`(?i)SOP-\d+`)
	datePattern    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	stepPattern    = regexp.MustCompile(`(?m)^\s*\d+\.`)
	versionEntries = []*regexp.Regexp{
		regexp.MustCompile(`(?i)v\d+\.\d+`),
		regexp.MustCompile(`(?i)version\s+\d+`),
		regexp.MustCompile(`(?i)rev\s+\d+`),
		regexp.MustCompile(`\d+\.\d+`),
		regexp.MustCompile(`(?i)draft`),
	}
	versionKeywords = []string{"version", "revision", "rev", "v."}
)

// checkMissingSections flags each absent mandatory section.
func checkMissingSections(sections []parser.Section) []*Finding {
	present := make(map[string]bool, len(sections))
	for _, s := range sections {
		present[strings.ToLower(strings.TrimSpace(s.Title))] = true
	}

	var findings []*Finding
	for _, required := range mandatorySections {
		if !present[strings.ToLower(required)] {
			findings = append(findings, newFinding(
				fmt.Sprintf("Missing Mandatory Section: %s", required),
				SeverityCritical,
				"Missing Sections",
			))
		}
	}
	return findings
}

// checkPlaceholders flags prohibited placeholder strings in the full text.
func checkPlaceholders(fullText string) []*Finding {
	lower := strings.ToLower(fullText)
	var findings []*Finding
	for _, placeholder := range placeholderStrings {
		if strings.Contains(lower, strings.ToLower(placeholder)) {
			findings = append(findings, newFinding(
				fmt.Sprintf("Prohibited Placeholder Found: '%s'", placeholder),
				SeverityMajor,
				"Content Quality",
			))
		}
	}
	return findings
}

// checkMetadataIssues verifies document ID, version, and effective date
// are present in the metadata values.
func checkMetadataIssues(metadata *parser.Metadata) []*Finding {
	values := metadata.Values()
	var findings []*Finding

	idFound := false
	for _, value := range values {
		if sopIDPattern.MatchString(value) {
			idFound = true
			break
		}
	}
	if !idFound {
		findings = append(findings, newFinding(
			"Missing Document ID (expected format: SOP-###)",
			SeverityCritical,
			"Metadata Issues",
		))
	}

	// Version keys routed to the typed field count, as do raw keys
	// that merely mention a version keyword.
	versionFound := metadata.Version != ""
	if !versionFound {
		for key := range metadata.Extra {
			lower := strings.ToLower(key)
			for _, keyword := range versionKeywords {
				if strings.Contains(lower, keyword) {
					versionFound = true
					break
				}
			}
			if versionFound {
				break
			}
		}
	}
	if !versionFound {
		findings = append(findings, newFinding(
			"Missing Version/Revision information",
			SeverityCritical,
			"Metadata Issues",
		))
	}

	dateFound := false
	for _, value := range values {
		if datePattern.MatchString(value) {
			dateFound = true
			break
		}
	}
	if !dateFound {
		findings = append(findings, newFinding(
			"Missing Effective Date (expected format: YYYY-MM-DD)",
			SeverityMajor,
			"Metadata Issues",
		))
	}

	return findings
}

// checkRevisionHistory requires a revision history section with at
// least one recognizable entry.
func checkRevisionHistory(sections []parser.Section) []*Finding {
	var revision *parser.Section
	for i := range sections {
		lower := strings.ToLower(sections[i].Title)
		if strings.Contains(lower, "revision") && strings.Contains(lower, "history") {
			revision = &sections[i]
			break
		}
	}
	if revision == nil {
		return []*Finding{newFinding(
			"Revision History section not found",
			SeverityCritical,
			"Revision History",
		)}
	}

	entries := 0
	for _, pattern := range versionEntries {
		entries += len(pattern.FindAllString(revision.Body, -1))
	}
	if entries == 0 {
		return []*Finding{newFinding(
			"Revision History must have at least 1 entry",
			SeverityMajor,
			"Revision History",
		)}
	}
	return nil
}

// checkProcedureClarity requires a procedure section with at least
// three numbered steps.
func checkProcedureClarity(sections []parser.Section) []*Finding {
	var procedure *parser.Section
	for i := range sections {
		if strings.Contains(strings.ToLower(sections[i].Title), "procedure") {
			procedure = &sections[i]
			break
		}
	}
	if procedure == nil {
		return []*Finding{newFinding(
			"Procedure section not found",
			SeverityCritical,
			"Content Quality",
		)}
	}

	steps := len(stepPattern.FindAllString(procedure.Body, -1))
	if steps < 3 {
		return []*Finding{newFinding(
			fmt.Sprintf("Procedure section has insufficient clarity (found %d numbered steps, minimum required: 3)", steps),
			SeverityMajor,
			"Content Quality",
		)}
	}
	return nil
}

// checkApprovalSignatures requires all signature lines.
func checkApprovalSignatures(fullText string) []*Finding {
	lower := strings.ToLower(fullText)
	var findings []*Finding
	for _, approval := range requiredApprovals {
		if !strings.Contains(lower, strings.ToLower(approval)) {
			findings = append(findings, newFinding(
				fmt.Sprintf("Missing approval/signature line: %s", approval),
				SeverityMajor,
				"Approvals",
			))
		}
	}
	return findings
}

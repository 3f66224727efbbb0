package ai

import (
	"fmt"
	"strings"

	"github.com/datec-bo/facturaflow/internal/invoice"
)

// buildMatchPrompt asks the model to pick one supplier from the candidate
// list, or none. The answer schema is kept deliberately small so weaker
// models stay on track.
func buildMatchPrompt(name, taxNumber string, candidates []invoice.SupplierRecord) string {
	var b strings.Builder

	b.WriteString("You match supplier names from Bolivian invoices to SAP master data.\n")
	b.WriteString("Company names may be abbreviated, reordered, translated or carry OCR noise.\n\n")
	b.WriteString("Invoice supplier:\n")
	fmt.Fprintf(&b, "  name: %q\n", name)
	if taxNumber != "" {
		fmt.Fprintf(&b, "  tax number (NIT): %q\n", taxNumber)
	}
	b.WriteString("\nCandidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "  %d. code=%s name=%q", i, c.Code, c.Name)
		if c.FullName != "" && c.FullName != c.Name {
			fmt.Fprintf(&b, " full_name=%q", c.FullName)
		}
		if c.TaxNumber != "" {
			fmt.Fprintf(&b, " nit=%s", c.TaxNumber)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer with JSON only:\n")
	b.WriteString(`{"match_index": <candidate number, or -1 if none is the same company>, "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`)
	b.WriteString("\nDo not match companies that merely share an industry or a common word.")

	return b.String()
}

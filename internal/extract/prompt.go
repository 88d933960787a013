package extract

import (
	"fmt"
	"strings"

	"github.com/dgallion1/specgest/internal/chunker"
	"github.com/dgallion1/specgest/internal/schema"
)

// SystemPrompt frames every extraction call.
const SystemPrompt = `You are an expert system trained to understand and process technical information from documents. You extract technical parameter values precisely and respond with strict JSON only.`

const extractionRules = `Extract the listed parameters from the document section below. Return a JSON object:

{
  "parameters": {
    "<PARAMETER_NAME>": {
      "value": <number, or the raw string if the parameter has no numeric value>,
      "text": "<raw matched string from the document>",
      "unit": "<unit of the reported value, or null>",
      "page_index": <page index the value was found on>,
      "bbox": [x0, y0, x1, y1]
    }
  },
  "not_found": ["<parameter names not present in this section>"]
}

Rules:
- Separate numeric values from their units: "value" holds the number, "unit" holds the unit string (e.g. "bar", "kW", "ms").
- If a parameter declares a desired unit and the document states the value in another unit, convert it. Example: document says 100 mm, desired unit is cm, then value is 10 and unit is "cm".
- Extracting "value" may require simple computation from "text": "3+4" yields 7, "3x 4" yields 12.
- Each document element carries the page index and bounding box where its content is located. Report the page_index and bbox of the element the value was found in.
- Parameter names include the device they belong to. Do not take a value from a different device's parameter of the same name.
- Minimize false extractions: only report a parameter when you are 99 percent confident it is correct. Everything else goes into "not_found".
- Respond with ONLY the JSON object, no other text.`

// BuildChunkPrompt assembles the inference prompt for one chunk and its
// parameter subset.
func BuildChunkPrompt(docTitle string, descs []schema.Descriptor, chunk chunker.Chunk) string {
	var sb strings.Builder
	sb.WriteString(extractionRules)
	sb.WriteString("\n\n## Parameters to extract (")
	fmt.Fprintf(&sb, "%d total)\n", len(descs))
	for _, d := range descs {
		sb.WriteString("- ")
		sb.WriteString(d.Name)
		if d.Label != "" {
			fmt.Fprintf(&sb, " (%s)", d.Label)
		}
		if d.DesiredUnit != "" {
			fmt.Fprintf(&sb, " [desired unit: %s]", d.DesiredUnit)
		}
		if d.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(d.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Document")
	if docTitle != "" {
		fmt.Fprintf(&sb, ": %q", docTitle)
	}
	sb.WriteString("\n")
	for _, el := range chunk.Elements {
		fmt.Fprintf(&sb, "\n<!-- %s page=%d bbox=%.1f,%.1f,%.1f,%.1f -->\n",
			el.Kind, el.Page, el.BBox[0], el.BBox[1], el.BBox[2], el.BBox[3])
		sb.WriteString(el.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

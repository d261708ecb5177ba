package form31

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/osbtools/form31-converter/internal/xmltree"
)

// Diagnostic is a single schema violation located in the validated document.
type Diagnostic struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// ValidationReport is the outcome of checking a document against the XSD.
type ValidationReport struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// xsdSchema mirrors the subset of XML Schema the Form 31 XSD uses:
// a single top-level element, nested inline complex types with
// sequences, and required/fixed attributes.
type xsdSchema struct {
	XMLName         xml.Name    `xml:"http://www.w3.org/2001/XMLSchema schema"`
	TargetNamespace string      `xml:"targetNamespace,attr"`
	Elements        []xsdElement `xml:"element"`
}

type xsdElement struct {
	Name        string          `xml:"name,attr"`
	Type        string          `xml:"type,attr"`
	MinOccurs   string          `xml:"minOccurs,attr"`
	MaxOccurs   string          `xml:"maxOccurs,attr"`
	ComplexType *xsdComplexType `xml:"complexType"`
}

type xsdComplexType struct {
	Sequence   *xsdSequence   `xml:"sequence"`
	Attributes []xsdAttribute `xml:"attribute"`
}

type xsdSequence struct {
	Elements []xsdElement `xml:"element"`
}

type xsdAttribute struct {
	Name  string `xml:"name,attr"`
	Use   string `xml:"use,attr"`
	Fixed string `xml:"fixed,attr"`
}

func (e xsdElement) required() bool {
	return e.MinOccurs != "0"
}

func (e xsdElement) repeatable() bool {
	return e.MaxOccurs == "unbounded"
}

// SchemaValidator checks generated documents against the Form 31 XSD.
// It validates the structural subset the schema actually exercises:
// element names and namespaces, sequence order, occurrence bounds, and
// required or fixed attributes.
type SchemaValidator struct {
	schemaPath string
	logger     zerolog.Logger
}

func NewSchemaValidator(schemaPath string, logger zerolog.Logger) *SchemaValidator {
	return &SchemaValidator{
		schemaPath: schemaPath,
		logger:     logger.With().Str("component", "schema-validator").Logger(),
	}
}

// Validate checks xmlContent against the XSD at schemaPath, falling back
// to the validator's configured path when schemaPath is empty. A missing
// or unreadable schema file is reported as a diagnostic, not an error,
// so that callers treat it the same as any other failed check.
func (v *SchemaValidator) Validate(xmlContent string, schemaPath string) ValidationReport {
	if schemaPath == "" {
		schemaPath = v.schemaPath
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		v.logger.Warn().Str("schema", schemaPath).Err(err).Msg("schema file not readable")
		return invalidReport(Diagnostic{Message: fmt.Sprintf("schema not found: %s", schemaPath)})
	}

	var schema xsdSchema
	if err := xml.Unmarshal(schemaData, &schema); err != nil {
		return invalidReport(Diagnostic{Message: fmt.Sprintf("schema is not parseable: %v", err)})
	}
	if len(schema.Elements) == 0 {
		return invalidReport(Diagnostic{Message: "schema declares no top-level element"})
	}

	root, err := xmltree.Parse([]byte(xmlContent))
	if err != nil {
		return invalidReport(Diagnostic{Message: fmt.Sprintf("document is not parseable XML: %v", err)})
	}

	var diags []Diagnostic
	decl := schema.Elements[0]
	if root.Name.Local != decl.Name {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("root element is %q, expected %q", root.Name.Local, decl.Name),
			Line:    root.Line,
			Column:  root.Col,
		})
	} else {
		if schema.TargetNamespace != "" && root.Name.Space != schema.TargetNamespace {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("root element namespace is %q, expected %q", root.Name.Space, schema.TargetNamespace),
				Line:    root.Line,
				Column:  root.Col,
			})
		}
		diags = append(diags, validateElement(root, decl)...)
	}

	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})

	return ValidationReport{Valid: len(diags) == 0, Diagnostics: diags}
}

func invalidReport(d Diagnostic) ValidationReport {
	return ValidationReport{Valid: false, Diagnostics: []Diagnostic{d}}
}

// validateElement checks node against its declaration and recurses into
// declared children. Diagnostics for a node's own structure are emitted
// at the node's position, so sorting by position yields document order.
func validateElement(node *xmltree.Node, decl xsdElement) []Diagnostic {
	var diags []Diagnostic

	if decl.ComplexType == nil {
		// Simple-typed leaf: child elements are not allowed.
		for _, child := range node.Children {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q does not allow child element %q", node.Name.Local, child.Name.Local),
				Line:    child.Line,
				Column:  child.Col,
			})
		}
		return diags
	}

	diags = append(diags, validateAttributes(node, decl.ComplexType.Attributes)...)

	var declared []xsdElement
	if decl.ComplexType.Sequence != nil {
		declared = decl.ComplexType.Sequence.Elements
	}

	index := make(map[string]int, len(declared))
	for i, d := range declared {
		index[d.Name] = i
	}

	counts := make(map[string]int, len(declared))
	highest := -1
	for _, child := range node.Children {
		pos, ok := index[child.Name.Local]
		if !ok {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q is not allowed in %q", child.Name.Local, node.Name.Local),
				Line:    child.Line,
				Column:  child.Col,
			})
			continue
		}
		if pos < highest {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q is out of sequence in %q", child.Name.Local, node.Name.Local),
				Line:    child.Line,
				Column:  child.Col,
			})
		}
		if pos > highest {
			highest = pos
		}
		counts[child.Name.Local]++
		if counts[child.Name.Local] > 1 && !declared[pos].repeatable() {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q occurs more than once in %q", child.Name.Local, node.Name.Local),
				Line:    child.Line,
				Column:  child.Col,
			})
		}
		diags = append(diags, validateElement(child, declared[pos])...)
	}

	for _, d := range declared {
		if d.required() && counts[d.Name] == 0 {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q is missing required child %q", node.Name.Local, d.Name),
				Line:    node.Line,
				Column:  node.Col,
			})
		}
	}

	return diags
}

func validateAttributes(node *xmltree.Node, attrs []xsdAttribute) []Diagnostic {
	var diags []Diagnostic
	for _, attr := range attrs {
		present := node.HasAttr(attr.Name)
		if attr.Use == "required" && !present {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("element %q is missing required attribute %q", node.Name.Local, attr.Name),
				Line:    node.Line,
				Column:  node.Col,
			})
			continue
		}
		if present && attr.Fixed != "" && node.Attr(attr.Name) != attr.Fixed {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("attribute %q of element %q must be %q, got %q",
					attr.Name, node.Name.Local, attr.Fixed, node.Attr(attr.Name)),
				Line:    node.Line,
				Column:  node.Col,
			})
		}
	}
	return diags
}

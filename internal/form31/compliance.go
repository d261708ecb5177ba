package form31

import (
	"encoding/xml"
	"time"

	"github.com/rs/zerolog"

	"github.com/osbtools/form31-converter/internal/xmltree"
)

// Enforcer injects the markers a filing processor requires into an XML
// document that is missing them: the schema namespaces on the root, the
// identifying attributes on the form element, and the generation
// metadata. Documents that already carry a marker keep their value, so
// enforcement is idempotent.
type Enforcer struct {
	systemName string
	now        func() time.Time
	logger     zerolog.Logger
}

func NewEnforcer(systemName string, logger zerolog.Logger) *Enforcer {
	if systemName == "" {
		systemName = DefaultGeneratingSystem
	}
	return &Enforcer{
		systemName: systemName,
		now:        time.Now,
		logger:     logger.With().Str("component", "compliance").Logger(),
	}
}

// Enforce returns xmlContent with all required markers present. Content
// that does not parse as XML is returned unchanged; the schema check
// that follows enforcement reports the real problem.
func (e *Enforcer) Enforce(xmlContent string) string {
	root, err := xmltree.Parse([]byte(xmlContent))
	if err != nil {
		e.logger.Warn().Err(err).Msg("cannot enforce compliance on unparseable XML")
		return xmlContent
	}

	e.ensureNamespaces(root)

	form := root
	if root.Name.Local != "form" {
		form = root.Child("form")
		if form == nil {
			form = xmltree.NewElement("form", "")
			root.InsertChildAt(0, form)
		}
	}
	e.ensureFormAttributes(form)
	e.ensureMetadata(form)

	return root.Serialize()
}

func (e *Enforcer) ensureNamespaces(root *xmltree.Node) {
	if root.Attr("xmlns") == "" && root.Name.Space == "" {
		root.SetAttr(xml.Name{Local: "xmlns"}, Namespace)
	}
	if !root.HasAttr("xsi") {
		root.SetAttr(xml.Name{Space: "xmlns", Local: "xsi"}, xmltree.XSINamespace)
	}
	if !root.HasAttr("schemaLocation") {
		root.SetAttr(xml.Name{Space: xmltree.XSINamespace, Local: "schemaLocation"}, SchemaLocation)
	}
}

func (e *Enforcer) ensureFormAttributes(form *xmltree.Node) {
	if !form.HasAttr("type") {
		form.SetAttr(xml.Name{Local: "type"}, FormType)
	}
	if !form.HasAttr("form-number") {
		form.SetAttr(xml.Name{Local: "form-number"}, FormNumber)
	}
	if !form.HasAttr("version") {
		form.SetAttr(xml.Name{Local: "version"}, FormVersion)
	}
}

func (e *Enforcer) ensureMetadata(form *xmltree.Node) {
	meta := form.Child("metadata")
	if meta == nil {
		meta = xmltree.NewElement("metadata", "")
		form.InsertChildAt(0, meta)
	}

	if meta.Child("generated-timestamp") == nil {
		meta.InsertChildAt(0, xmltree.NewElement("generated-timestamp", e.now().UTC().Format(time.RFC3339)))
	}
	if meta.Child("generation-system") == nil {
		system := xmltree.NewElement("generation-system", e.systemName)
		if inserted := insertBefore(meta, "document-id", system); !inserted {
			meta.AddChild(system)
		}
	}
}

// insertBefore places child immediately before the first element named
// local, keeping the metadata sequence in schema order.
func insertBefore(parent *xmltree.Node, local string, child *xmltree.Node) bool {
	for i, existing := range parent.Children {
		if existing.Name.Local == local {
			parent.InsertChildAt(i, child)
			return true
		}
	}
	return false
}

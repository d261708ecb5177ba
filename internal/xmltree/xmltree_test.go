package xmltree

import (
	"encoding/xml"
	"strings"
	"testing"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<form type="bankruptcy">
  <content>
    <personalInfo>
      <name>Jane Doe</name>
      <address>
        <city>Ottawa</city>
      </address>
    </personalInfo>
    <creditors>
      <creditor><name>Bank A</name></creditor>
      <creditor><name>Bank B</name></creditor>
    </creditors>
  </content>
</form>`

func TestParse(t *testing.T) {
	root, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if root.Name.Local != "form" {
		t.Errorf("expected root 'form', got %q", root.Name.Local)
	}
	if got := root.Attr("type"); got != "bankruptcy" {
		t.Errorf("expected type attribute 'bankruptcy', got %q", got)
	}
	if got := root.FindText("content", "personalInfo", "name"); got != "Jane Doe" {
		t.Errorf("expected name 'Jane Doe', got %q", got)
	}
	if got := root.FindText("content", "personalInfo", "address", "city"); got != "Ottawa" {
		t.Errorf("expected city 'Ottawa', got %q", got)
	}
	if node := root.Find("content", "missing", "path"); node != nil {
		t.Errorf("expected nil for missing path, got %v", node)
	}

	creditors := root.FindAll("content", "creditors", "creditor")
	if len(creditors) != 2 {
		t.Fatalf("expected 2 creditor nodes, got %d", len(creditors))
	}
	if creditors[1].ChildText("name") != "Bank B" {
		t.Errorf("expected second creditor 'Bank B', got %q", creditors[1].ChildText("name"))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "not XML at all", input: "this is not xml"},
		{name: "unclosed element", input: "<form><content></form>"},
		{name: "truncated document", input: "<form><content>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Errorf("expected parse error for %q", tt.input)
			}
		})
	}
}

func TestParse_Positions(t *testing.T) {
	root, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if root.Line != 2 {
		t.Errorf("expected root on line 2, got %d", root.Line)
	}
	name := root.Find("content", "personalInfo", "name")
	if name == nil {
		t.Fatal("name node not found")
	}
	if name.Line != 5 {
		t.Errorf("expected name on line 5, got %d", name.Line)
	}
	if name.Col < 1 {
		t.Errorf("expected 1-based column, got %d", name.Col)
	}
}

func TestSerialize_Stable(t *testing.T) {
	root := NewElement("document", "")
	form := root.AddChild(NewElement("form", ""))
	form.SetAttr(xml.Name{Local: "type"}, "bankruptcy")
	meta := form.AddChild(NewElement("metadata", ""))
	meta.AddText("source-file", "debtor & estate.pdf")
	form.AddChild(NewElement("content", ""))

	first := root.Serialize()

	reparsed, err := Parse([]byte(first))
	if err != nil {
		t.Fatalf("serialized output did not reparse: %v", err)
	}
	second := reparsed.Serialize()

	if first != second {
		t.Errorf("serialization not stable:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if !strings.HasPrefix(first, xml.Header) {
		t.Errorf("expected XML declaration prefix, got %q", first[:40])
	}
	if !strings.Contains(first, "debtor &amp; estate.pdf") {
		t.Errorf("expected escaped ampersand in output:\n%s", first)
	}
}

func TestSetAttr_Overwrites(t *testing.T) {
	node := NewElement("form", "")
	node.SetAttr(xml.Name{Local: "version"}, "0.9")
	node.SetAttr(xml.Name{Local: "version"}, "1.0")

	if len(node.Attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(node.Attrs))
	}
	if node.Attr("version") != "1.0" {
		t.Errorf("expected version '1.0', got %q", node.Attr("version"))
	}
}

func TestInsertChildAt(t *testing.T) {
	node := NewElement("metadata", "")
	node.AddText("source-file", "a.pdf")
	node.InsertChildAt(0, NewElement("generated-timestamp", "2024-01-01T00:00:00Z"))

	if node.Children[0].Name.Local != "generated-timestamp" {
		t.Errorf("expected generated-timestamp first, got %q", node.Children[0].Name.Local)
	}
	if node.Children[1].Name.Local != "source-file" {
		t.Errorf("expected source-file second, got %q", node.Children[1].Name.Local)
	}
}

func TestSerialize_NamespacePrefixes(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<document xmlns="http://ised-isde.canada.ca/form31/schema/1.0" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://ised-isde.canada.ca/form31/schema/1.0 form31.xsd">
  <form/>
</document>`

	root, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	out := root.Serialize()

	for _, want := range []string{
		`xmlns="http://ised-isde.canada.ca/form31/schema/1.0"`,
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
		`xsi:schemaLocation="http://ised-isde.canada.ca/form31/schema/1.0 form31.xsd"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in serialized output:\n%s", want, out)
		}
	}
}

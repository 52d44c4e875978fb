// =============================================================================
// Attendance Dashboard - XML Export
// =============================================================================
//
// Writes the record set as an XML document grouped by department.
//
// XML STRUCTURE:
//
//   <attendance generated="2026-01-02T15:04:05Z">
//     <department n="1" name="CS">
//       <student n="1">
//         <StudentID>1</StudentID>
//         <Name>Alice</Name>
//         <Department>CS</Department>
//         <Total_Classes>10</Total_Classes>
//         <Attended_Classes>8</Attended_Classes>
//         <Attendance_Percent>80.0</Attendance_Percent>
//         <Status>Medium</Status>
//       </student>
//     </department>
//     <department n="2" name="EE">
//       <student n="2">                <!-- numbering continues -->
//         ...
//       </student>
//     </department>
//   </attendance>
//
// Departments appear in first-appearance order. Invalid counts and undefined
// percents are written as empty self-closing elements.
//
// =============================================================================

package exporter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/metrics"
	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// XML OPTIONS
// =============================================================================

// XMLOptions controls XML generation.
type XMLOptions struct {
	// Indent is the string used for one level of indentation.
	Indent string

	// IncludeDeclaration writes the <?xml ...?> header.
	IncludeDeclaration bool

	// GlobalNumbering numbers students across departments (1, 2, 3...).
	// When false numbering restarts in each department.
	GlobalNumbering bool

	// Generated stamps the root element. Zero omits the attribute.
	Generated time.Time
}

// DefaultXMLOptions returns the default options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:             "  ",
		IncludeDeclaration: true,
		GlobalNumbering:    true,
	}
}

// XML element names.
const (
	xmlRoot       = "attendance"
	xmlDepartment = "department"
	xmlStudent    = "student"
)

// =============================================================================
// XML GENERATION
// =============================================================================

// WriteXML writes the set as XML using the default options.
func WriteXML(w io.Writer, set types.RecordSet) error {
	opts := DefaultXMLOptions()
	opts.Generated = time.Now().UTC()
	return WriteXMLWithOptions(w, set, opts)
}

// WriteXMLWithOptions writes the set as XML.
func WriteXMLWithOptions(w io.Writer, set types.RecordSet, opts XMLOptions) error {
	var buf bytes.Buffer

	if opts.IncludeDeclaration {
		buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}

	root := element{name: xmlRoot}
	if !opts.Generated.IsZero() {
		root.attrs = append(root.attrs, attr{"generated", opts.Generated.Format(time.RFC3339)})
	}

	studentIndex := 1
	for i, group := range groupInOrder(set) {
		dept := element{
			name: xmlDepartment,
			attrs: []attr{
				{"n", strconv.Itoa(i + 1)},
				{"name", group.name},
			},
		}

		if !opts.GlobalNumbering {
			studentIndex = 1
		}
		for _, r := range group.records {
			dept.children = append(dept.children, studentElement(r, studentIndex))
			studentIndex++
		}

		root.children = append(root.children, dept)
	}

	root.write(&buf, opts.Indent, 0)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// studentElement builds one <student> element.
func studentElement(r types.Record, index int) element {
	p := metrics.AttendancePercent(r)

	percent := ""
	if p.Defined {
		percent = strconv.FormatFloat(p.Rounded(), 'f', 1, 64)
	}

	values := []string{
		r.ID,
		r.Name,
		r.Department,
		countText(r.TotalClasses),
		countText(r.AttendedClasses),
	}

	el := element{
		name:  xmlStudent,
		attrs: []attr{{"n", strconv.Itoa(index)}},
	}
	for i, tag := range csvparser.Header {
		el.children = append(el.children, element{name: tag, value: values[i]})
	}
	el.children = append(el.children,
		element{name: "Attendance_Percent", value: percent},
		element{name: "Status", value: metrics.Classify(p).Label()},
	)

	return el
}

func countText(c types.Count) string {
	if !c.Valid {
		return ""
	}
	return strconv.Itoa(c.Value)
}

type departmentRecords struct {
	name    string
	records types.RecordSet
}

// groupInOrder groups by department in first-appearance order. Unlike
// metrics.GroupByDepartment, records without a department get a group too.
func groupInOrder(set types.RecordSet) []departmentRecords {
	var groups []departmentRecords
	index := make(map[string]int)

	for _, r := range set {
		i, ok := index[r.Department]
		if !ok {
			i = len(groups)
			index[r.Department] = i
			groups = append(groups, departmentRecords{name: r.Department})
		}
		groups[i].records = append(groups[i].records, r)
	}

	return groups
}

// =============================================================================
// ELEMENT WRITER
// =============================================================================

type attr struct {
	name  string
	value string
}

type element struct {
	name     string
	attrs    []attr
	value    string
	children []element
}

// write renders the element and its children at the given depth.
func (e element) write(buf *bytes.Buffer, indent string, level int) {
	buf.WriteString(strings.Repeat(indent, level))
	buf.WriteString("<" + e.name)

	for _, a := range e.attrs {
		fmt.Fprintf(buf, ` %s="%s"`, a.name, escapeXML(a.value))
	}

	if len(e.children) == 0 && e.value == "" {
		buf.WriteString("/>\n")
		return
	}

	buf.WriteString(">")

	if len(e.children) == 0 {
		buf.WriteString(escapeXML(e.value))
	} else {
		buf.WriteString("\n")
		for _, c := range e.children {
			c.write(buf, indent, level+1)
		}
		buf.WriteString(strings.Repeat(indent, level))
	}

	buf.WriteString("</" + e.name + ">\n")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// WriteXSD writes an XML Schema describing the XML export.
func WriteXSD(w io.Writer) error {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:simpleType name="optionalNumber">
    <xs:union>
      <xs:simpleType>
        <xs:restriction base="xs:decimal"/>
      </xs:simpleType>
      <xs:simpleType>
        <xs:restriction base="xs:string">
          <xs:length value="0"/>
        </xs:restriction>
      </xs:simpleType>
    </xs:union>
  </xs:simpleType>

`)

	fmt.Fprintf(&buf, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="generated" type="xs:dateTime"/>
    </xs:complexType>
  </xs:element>

`, xmlRoot, xmlDepartment)

	fmt.Fprintf(&buf, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
      <xs:attribute name="name" type="xs:string" use="required"/>
    </xs:complexType>
  </xs:element>

`, xmlDepartment, xmlStudent)

	fmt.Fprintf(&buf, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, xmlStudent)

	fields := append(append([]string{}, csvparser.Header...), "Attendance_Percent", "Status")
	for _, f := range fields {
		fmt.Fprintf(&buf, "        <xs:element name=\"%s\" type=\"%s\"/>\n", f, xsdType(f))
	}

	buf.WriteString(`      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	_, err := w.Write(buf.Bytes())
	return err
}

// xsdType maps export fields to XSD types. Numeric fields may be empty.
func xsdType(field string) string {
	switch field {
	case "Total_Classes", "Attended_Classes", "Attendance_Percent":
		return "optionalNumber"
	default:
		return "xs:string"
	}
}

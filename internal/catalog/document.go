// Package catalog reads and writes catalog documents and keeps a catalog
// directory loaded into a Loader.
//
// A catalog is an XML file rooted at <Catalog> holding Name, NameUsage,
// Annotation, AnnotationType and LinkType elements. Unknown elements and
// attributes are ignored; unset optional fields are omitted on output.
package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// ErrNotCatalog is returned when the document root is not <Catalog>.
var ErrNotCatalog = errors.New("catalog: root element is not <Catalog>")

var (
	rootExpr       = xpath.MustCompile("/Catalog")
	nameExpr       = xpath.MustCompile("Name")
	usageExpr      = xpath.MustCompile("NameUsage")
	annotationExpr = xpath.MustCompile("Annotation")
	annTypeExpr    = xpath.MustCompile("AnnotationType")
	linkTypeExpr   = xpath.MustCompile("LinkType")
	annotatorExpr  = xpath.MustCompile("annotator")
	annotatantExpr = xpath.MustCompile("annotatant")
)

// Document is the decoded form of a catalog file.
type Document struct {
	XMLName         xml.Name     `xml:"Catalog"`
	AnnotationTypes []TypeDecl   `xml:"AnnotationType,omitempty"`
	LinkTypes       []TypeDecl   `xml:"LinkType,omitempty"`
	Names           []Name       `xml:"Name,omitempty"`
	Usages          []Usage      `xml:"NameUsage,omitempty"`
	Annotations     []Annotation `xml:"Annotation,omitempty"`
}

// Name declares a name. Entity and Higher refer to other names by literal.
type Name struct {
	Literal  string `xml:"literal,attr"`
	Kind     string `xml:"kind,attr,omitempty"`
	Entity   string `xml:"entity,attr,omitempty"`
	Higher   string `xml:"higher,attr,omitempty"`
	Resolved bool   `xml:"resolved,attr,omitempty"`
	Implicit bool   `xml:"implicit,attr,omitempty"`
}

// Usage declares a name usage. Citation is an alternative to the separate
// name, authority and year fields.
type Usage struct {
	ID        string `xml:"id,attr,omitempty"`
	Name      string `xml:"name,omitempty"`
	Authority string `xml:"authority,omitempty"`
	Year      string `xml:"year,omitempty"`
	Citation  string `xml:"citation,omitempty"`
}

// Annotation links usages by ID.
type Annotation struct {
	ID          string   `xml:"id,attr,omitempty"`
	Type        string   `xml:"type,attr"`
	LinkType    string   `xml:"link,attr,omitempty"`
	Annotators  []string `xml:"annotator"`
	Annotatants []string `xml:"annotatant"`
}

// TypeDecl declares an annotation or link type with cardinality tokens.
type TypeDecl struct {
	Name        string `xml:"name,attr"`
	Annotators  string `xml:"annotators,attr,omitempty"`
	Annotatants string `xml:"annotatants,attr,omitempty"`
}

// Decode parses a catalog document.
func Decode(r io.Reader) (*Document, error) {
	top, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	root := xmlquery.QuerySelector(top, rootExpr)
	if root == nil {
		return nil, ErrNotCatalog
	}

	doc := &Document{}
	for _, n := range xmlquery.QuerySelectorAll(root, annTypeExpr) {
		doc.AnnotationTypes = append(doc.AnnotationTypes, decodeType(n))
	}
	for _, n := range xmlquery.QuerySelectorAll(root, linkTypeExpr) {
		doc.LinkTypes = append(doc.LinkTypes, decodeType(n))
	}
	for _, n := range xmlquery.QuerySelectorAll(root, nameExpr) {
		lit := attr(n, "literal")
		if lit == "" {
			lit = text(n)
		}
		doc.Names = append(doc.Names, Name{
			Literal:  lit,
			Kind:     attr(n, "kind"),
			Entity:   attr(n, "entity"),
			Higher:   attr(n, "higher"),
			Resolved: flag(n, "resolved"),
			Implicit: flag(n, "implicit"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(root, usageExpr) {
		doc.Usages = append(doc.Usages, Usage{
			ID:        attr(n, "id"),
			Name:      child(n, "name"),
			Authority: child(n, "authority"),
			Year:      child(n, "year"),
			Citation:  child(n, "citation"),
		})
	}
	for _, n := range xmlquery.QuerySelectorAll(root, annotationExpr) {
		a := Annotation{
			ID:       attr(n, "id"),
			Type:     attr(n, "type"),
			LinkType: attr(n, "link"),
		}
		for _, c := range xmlquery.QuerySelectorAll(n, annotatorExpr) {
			if id := text(c); id != "" {
				a.Annotators = append(a.Annotators, id)
			}
		}
		for _, c := range xmlquery.QuerySelectorAll(n, annotatantExpr) {
			if id := text(c); id != "" {
				a.Annotatants = append(a.Annotatants, id)
			}
		}
		doc.Annotations = append(doc.Annotations, a)
	}
	return doc, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes doc as an indented catalog document.
func Encode(w io.Writer, doc *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// EncodeBytes is Encode into a byte slice.
func EncodeBytes(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeType(n *xmlquery.Node) TypeDecl {
	return TypeDecl{
		Name:        attr(n, "name"),
		Annotators:  attr(n, "annotators"),
		Annotatants: attr(n, "annotatants"),
	}
}

func attr(n *xmlquery.Node, name string) string {
	return strings.TrimSpace(n.SelectAttr(name))
}

func flag(n *xmlquery.Node, name string) bool {
	v, err := strconv.ParseBool(attr(n, name))
	return err == nil && v
}

func text(n *xmlquery.Node) string {
	return strings.Join(strings.Fields(n.InnerText()), " ")
}

func child(n *xmlquery.Node, name string) string {
	c := n.SelectElement(name)
	if c == nil {
		return ""
	}
	return text(c)
}

package mcpserver

// CatalogFormatContract describes the XML catalog format that LLM
// consumers should follow when importing catalogs.
const CatalogFormatContract = `# Catalog Format Contract

A catalog is a UTF-8 XML file ending in ` + "`.xml`" + ` whose root element is ` + "`<Catalog>`" + `.
Files anywhere under the catalog directory are loaded on startup and reloaded on change.

## Elements

` + "```" + `xml
<Catalog>
  <!-- Optional type declarations. Cardinality tokens: 0, 1, or anything else (n, m) for unbounded. -->
  <AnnotationType name="refer" annotators="1" annotatants="n"/>
  <LinkType name="basionym" annotators="1" annotatants="1"/>

  <!-- Names. kind is name (default), ascribed or object.
       entity points at the name this one designates; higher at the parent ascribed name. -->
  <Name literal="Panthera" kind="ascribed"/>
  <Name literal="Panthera leo" kind="ascribed" higher="Panthera"/>
  <Name literal="Felis leo" kind="ascribed" entity="Panthera leo"/>

  <!-- Usages: either a free-text citation or separate fields. -->
  <NameUsage id="leo1758"><citation>Felis leo Linnaeus, 1758</citation></NameUsage>
  <NameUsage id="leo1816"><name>Panthera leo</name><authority>Oken</authority><year>1816</year></NameUsage>

  <!-- Annotations link usages by ID. link defaults to type. -->
  <Annotation id="b1" type="refer" link="basionym">
    <annotator>leo1816</annotator>
    <annotatant>leo1758</annotatant>
  </Annotation>
</Catalog>
` + "```" + `

## Rules

1. **Root element** must be ` + "`<Catalog>`" + `; other documents are ignored.
2. **Usage IDs** are unique across all loaded catalogs. The ` + "`NameUsage::`" + ` prefix is optional.
3. **Annotation IDs** are unique; omit ` + "`id`" + ` to have one generated.
4. **Types** referenced by ` + "`type`" + ` and ` + "`link`" + ` must be built in
   (synonym, homonym, nec, refer, equiv, vernacular) or declared in some loaded catalog.
5. **Cardinality** caps are enforced; an annotation with too many participants is skipped.
6. **Names** outlive the catalog that declared them. Usages and annotations are
   dropped when their catalog is removed.
7. Invalid entries are skipped and reported; the rest of the file still loads.
`

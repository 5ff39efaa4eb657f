package stringtable

// Well-known namespaces present in every table.
const (
	XMLNamespace       = "http://www.w3.org/XML/1998/namespace"
	XSINamespace       = "http://www.w3.org/2001/XMLSchema-instance"
	XMLSchemaNamespace = "http://www.w3.org/2001/XMLSchema"
)

// Ids of the pre-seeded URIs.
const (
	URIEmpty     = 0
	URIXML       = 1
	URIXSI       = 2
	URIXMLSchema = 3 // schema-informed tables only
)

// Ids of the pre-seeded local names in the XSI partition.
const (
	XSINil  = 0
	XSIType = 1
)

var (
	xmlLocalNames = []string{"base", "id", "lang", "space"}
	xsiLocalNames = []string{"nil", "type"}

	// xsdTypeNames lists the built-in simple type names, sorted.
	xsdTypeNames = []string{
		"ENTITIES", "ENTITY", "ID", "IDREF", "IDREFS",
		"NCName", "NMTOKEN", "NMTOKENS", "NOTATION", "Name", "QName",
		"anySimpleType", "anyType", "anyURI", "base64Binary", "boolean", "byte",
		"date", "dateTime", "decimal", "double", "duration", "float",
		"gDay", "gMonth", "gMonthDay", "gYear", "gYearMonth", "hexBinary",
		"int", "integer", "language", "long",
		"negativeInteger", "nonNegativeInteger", "nonPositiveInteger", "normalizedString",
		"positiveInteger", "short", "string", "time", "token",
		"unsignedByte", "unsignedInt", "unsignedLong", "unsignedShort",
	}
)

func (t *Table) seed() {
	t.Preload("", nil)
	t.Preload(XMLNamespace, xmlLocalNames)
	t.Preload(XSINamespace, xsiLocalNames)
	if t.schemaInformed {
		t.Preload(XMLSchemaNamespace, xsdTypeNames)
	}
}

// Preload registers uri and every name of localNames that its partition does
// not hold yet, and returns the id of uri. Grammars use it to make their
// vocabulary known before a stream starts.
func (t *Table) Preload(uri string, localNames []string) int {
	uriID, ok := t.LookupURI(uri)
	if !ok {
		uriID = t.AddURI(uri)
	}

	for _, name := range localNames {
		if _, ok := t.LookupLocalName(uriID, name); !ok {
			t.uris[uriID].LocalNames = appendDoubling(t.uris[uriID].LocalNames, LocalNameEntry{Name: name})
		}
	}

	return uriID
}

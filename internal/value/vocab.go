package value

// Namespaces.
const (
	XSD  = "http://www.w3.org/2001/XMLSchema#"
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	LDP  = "http://www.w3.org/ns/ldp#"
	Term = "app:/terms#"
)

// Concrete literal datatypes with a native variant.
const (
	XSDString      = XSD + "string"
	XSDInteger     = XSD + "integer"
	XSDDecimal     = XSD + "decimal"
	XSDBoolean     = XSD + "boolean"
	XSDDateTime    = XSD + "dateTime"
	LangStringType = RDF + "langString"
)

// Well-known predicates.
const (
	RDFType     = RDF + "type"
	LDPContains = LDP + "contains"
)

// Abstract datatypes of the datatype lattice.
//
//	ValueType ⊐ ResourceType, LiteralType
//	ResourceType ⊐ BNodeType, IRIType
//	LiteralType ⊐ every concrete literal datatype
const (
	ValueType    = Term + "value"
	ResourceType = Term + "resource"
	BNodeType    = Term + "bnode"
	IRIType      = Term + "iri"
	LiteralType  = Term + "literal"
)

// IsAbstract reports whether datatype is one of the lattice's abstract nodes.
func IsAbstract(datatype string) bool {
	switch datatype {
	case ValueType, ResourceType, BNodeType, IRIType, LiteralType:
		return true
	default:
		return false
	}
}

// Derives reports whether datatype is equal to or more specific than base.
func Derives(datatype, base string) bool {
	if datatype == base || base == ValueType {
		return true
	}
	switch base {
	case ResourceType:
		return datatype == BNodeType || datatype == IRIType
	case LiteralType:
		return !IsAbstract(datatype)
	default:
		return false
	}
}

// ExpandCURIE expands the xsd:, rdf: and ldp: prefixes; other strings are
// returned unchanged.
func ExpandCURIE(s string) string {
	for prefix, ns := range map[string]string{"xsd:": XSD, "rdf:": RDF, "ldp:": LDP} {
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return ns + s[len(prefix):]
		}
	}
	return s
}

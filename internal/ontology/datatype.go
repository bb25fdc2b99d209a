package ontology

import (
	"strings"

	"github.com/graphwarehouse/engine/internal/models"
)

var numericTypes = map[string]bool{
	"integer": true, "int": true, "long": true, "short": true, "byte": true,
	"decimal": true, "double": true, "float": true, "rational": true, "real": true,
	"nonnegativeinteger": true, "nonpositiveinteger": true,
	"positiveinteger": true, "negativeinteger": true,
	"unsignedint": true, "unsignedlong": true, "unsignedshort": true, "unsignedbyte": true,
	"number": true,
}

var dateTypes = map[string]bool{
	"datetime": true, "datetimestamp": true, "date": true, "time": true,
}

// NormalizeDataType maps a source type name onto a key data type. Type names
// may carry a namespace prefix ("xsd:integer", ".../XMLSchema#integer").
func NormalizeDataType(source string, enumerated bool) models.DataType {
	if enumerated {
		return models.DataTypeEnumeration
	}
	name := source
	if i := strings.LastIndexAny(name, "#:/"); i >= 0 {
		name = name[i+1:]
	}
	lower := strings.ToLower(strings.TrimSpace(name))

	switch {
	case numericTypes[lower]:
		return models.DataTypeNumber
	case dateTypes[lower]:
		return models.DataTypeDate
	case lower == "boolean":
		return models.DataTypeBoolean
	case lower == "anyuri":
		return models.DataTypeFile
	case name == "List" || lower == "list":
		return models.DataTypeList
	default:
		return models.DataTypeString
	}
}

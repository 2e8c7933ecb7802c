package reader

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a parquet file. FrameType is the
// column type a scan produces; it is empty for nested or repeated fields,
// which scans reject.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	FrameType    string `json:"frame_type,omitempty"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// ExtractSchemaInfo lists the leaf columns of a parquet file or URL.
//
// Nested fields use dot notation (e.g., "address.street") and inherit the
// repeated flag of their ancestors.
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	var infos []SchemaInfo
	for _, field := range r.Schema().Fields() {
		leaves := leafInfo(field, "", false)
		if t, err := columnType(field); err == nil && len(leaves) == 1 {
			leaves[0].FrameType = t.String()
		}
		infos = append(infos, leaves...)
	}
	return infos, nil
}

func leafInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, leafInfo(child, name, repeated)...)
		}
		return infos
	}

	return []SchemaInfo{{
		Name:         name,
		Type:         getUserFriendlyType(field),
		PhysicalType: getPhysicalType(field),
		LogicalType:  getLogicalType(field),
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}}
}

var physicalNames = map[parquet.Kind]string{
	parquet.Boolean:           "BOOLEAN",
	parquet.Int32:             "INT32",
	parquet.Int64:             "INT64",
	parquet.Int96:             "INT96",
	parquet.Float:             "FLOAT",
	parquet.Double:            "DOUBLE",
	parquet.ByteArray:         "BYTE_ARRAY",
	parquet.FixedLenByteArray: "FIXED_LEN_BYTE_ARRAY",
}

// friendlyPhysical differs from physicalNames for the floating point kinds
var friendlyPhysical = map[parquet.Kind]string{
	parquet.Float:  "FLOAT32",
	parquet.Double: "FLOAT64",
}

// friendlyLogical lists the logical type names reported as they are
var friendlyLogical = map[string]bool{
	"STRING": true, "ENUM": true, "UUID": true, "DATE": true, "TIME": true,
	"TIMESTAMP": true, "DECIMAL": true, "JSON": true, "BSON": true,
}

func getPhysicalType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}
	if name, ok := physicalNames[field.Type().Kind()]; ok {
		return name
	}
	return "UNKNOWN"
}

func getLogicalType(field parquet.Field) string {
	if field.Type() == nil || field.Type().LogicalType() == nil {
		return ""
	}
	return field.Type().LogicalType().String()
}

// getUserFriendlyType prefers the logical type name and falls back to the
// physical type. Parameterized logical types such as
// TIMESTAMP(isAdjustedToUTC=true,unit=MICROS) match on their name.
func getUserFriendlyType(field parquet.Field) string {
	if field.Type() == nil {
		return "GROUP"
	}
	if lt := getLogicalType(field); lt != "" {
		name, _, _ := strings.Cut(lt, "(")
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "UTF8" {
			name = "STRING"
		}
		if friendlyLogical[name] {
			return name
		}
	}
	kind := field.Type().Kind()
	if name, ok := friendlyPhysical[kind]; ok {
		return name
	}
	return getPhysicalType(field)
}

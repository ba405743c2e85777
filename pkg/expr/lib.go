package expr

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(path) == "inbox.md".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathBase: invalid string value")
					}

					return types.String(filepath.Base(pathValue))
				}),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: pathDir(path).startsWith("Projects").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathDir: invalid string value")
					}

					return types.String(filepath.Dir(pathValue))
				}),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(path) == ".md".
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("pathExt: invalid string value")
					}

					return types.String(filepath.Ext(pathValue))
				}),
			),
		),

		// `inFolder` reports whether a path is inside a folder, at any depth.
		// Example: inFolder(path, "Archive").
		cel.Function("inFolder",
			cel.Overload("in_folder", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(path, folder ref.Val) ref.Val {
					pathValue, ok := path.(types.String).Value().(string)
					if !ok {
						return types.NewErr("inFolder: invalid path value")
					}

					folderValue, ok := folder.(types.String).Value().(string)
					if !ok {
						return types.NewErr("inFolder: invalid folder value")
					}

					folderValue = strings.Trim(folderValue, "/")
					if folderValue == "" {
						return types.Bool(true)
					}

					return types.Bool(strings.HasPrefix(pathValue, folderValue+"/"))
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// ConvertToCELValue converts a Go value to a CEL value.
// Handles common YAML types and returns null for unsupported types.
//
//nolint:ireturn // Following CEL's function signature.
func ConvertToCELValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return types.NullValue

	case bool:
		return types.Bool(v)

	case int:
		return types.Int(v)

	case int8:
		return types.Int(int64(v))

	case int16:
		return types.Int(int64(v))

	case int32:
		return types.Int(int64(v))

	case int64:
		return types.Int(v)

	case uint:
		// Check for overflow when converting to int64.
		if v > math.MaxInt64 {
			return types.Double(float64(v))
		}

		return types.Int(int64(v))

	case uint8:
		return types.Int(int64(v))

	case uint16:
		return types.Int(int64(v))

	case uint32:
		return types.Int(int64(v))

	case uint64:
		// Check for overflow when converting to int64.
		if v > math.MaxInt64 {
			return types.Double(float64(v))
		}

		return types.Int(int64(v))

	case float32:
		return types.Double(float64(v))

	case float64:
		return types.Double(v)

	case string:
		return types.String(v)

	case []any:
		celValues := make([]ref.Val, len(v))
		for i, item := range v {
			celValues[i] = ConvertToCELValue(item)
		}

		return types.NewDynamicList(types.DefaultTypeAdapter, celValues)

	case map[any]any:
		celMap := make(map[ref.Val]ref.Val)
		for key, val := range v {
			celMap[ConvertToCELValue(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	case map[string]any:
		celMap := make(map[ref.Val]ref.Val)
		for key, val := range v {
			celMap[types.String(key)] = ConvertToCELValue(val)
		}

		return types.NewDynamicMap(types.DefaultTypeAdapter, celMap)

	default:
		// For unsupported types, return null instead of erroring.
		return types.NullValue
	}
}

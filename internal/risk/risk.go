// Package risk classifies field type conversions by the damage they can do to
// existing rows.
package risk

import "github.com/pullstream/schemaguard/internal/model"

// Level is the risk assigned to a (previous type, new type) pair.
type Level int

const (
	// LevelSafe conversions are lossless and applied without comment.
	LevelSafe Level = iota
	// LevelWarning conversions can lose precision or truncate values.
	LevelWarning
	// LevelBlocking conversions cannot be cast in place and would force the
	// column to be dropped and recreated.
	LevelBlocking
)

func (l Level) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelWarning:
		return "warning"
	case LevelBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// conversions is the literal risk table. The table is directional:
// Int -> String widens and is safe, String -> Int is not castable in general
// and blocks. Pairs absent from the table resolve to safe.
var conversions = map[model.DataType]map[model.DataType]Level{
	model.TypeInt: {
		model.TypeFloat:    LevelSafe,
		model.TypeDecimal:  LevelSafe,
		model.TypeString:   LevelSafe,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeFloat: {
		model.TypeInt:      LevelWarning,
		model.TypeDecimal:  LevelSafe,
		model.TypeString:   LevelSafe,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeDecimal: {
		model.TypeInt:      LevelWarning,
		model.TypeFloat:    LevelWarning,
		model.TypeString:   LevelSafe,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeString: {
		model.TypeInt:      LevelBlocking,
		model.TypeFloat:    LevelBlocking,
		model.TypeDecimal:  LevelBlocking,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelWarning,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeBoolean: {
		model.TypeInt:      LevelSafe,
		model.TypeFloat:    LevelSafe,
		model.TypeDecimal:  LevelSafe,
		model.TypeString:   LevelSafe,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeDateTime: {
		model.TypeInt:     LevelBlocking,
		model.TypeFloat:   LevelBlocking,
		model.TypeDecimal: LevelBlocking,
		model.TypeString:  LevelSafe,
		model.TypeBoolean: LevelBlocking,
		model.TypeUUID:    LevelBlocking,
		model.TypeJSON:    LevelWarning,
		model.TypeBytes:   LevelBlocking,
		model.TypeEnum:    LevelBlocking,
	},
	model.TypeUUID: {
		model.TypeInt:      LevelBlocking,
		model.TypeFloat:    LevelBlocking,
		model.TypeDecimal:  LevelBlocking,
		model.TypeString:   LevelSafe,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeJSON: {
		model.TypeInt:      LevelBlocking,
		model.TypeFloat:    LevelBlocking,
		model.TypeDecimal:  LevelBlocking,
		model.TypeString:   LevelWarning,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeBytes:    LevelWarning,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeBytes: {
		model.TypeInt:      LevelBlocking,
		model.TypeFloat:    LevelBlocking,
		model.TypeDecimal:  LevelBlocking,
		model.TypeString:   LevelBlocking,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeEnum:     LevelBlocking,
	},
	model.TypeEnum: {
		model.TypeInt:      LevelBlocking,
		model.TypeFloat:    LevelBlocking,
		model.TypeDecimal:  LevelBlocking,
		model.TypeString:   LevelSafe,
		model.TypeBoolean:  LevelBlocking,
		model.TypeDateTime: LevelBlocking,
		model.TypeUUID:     LevelBlocking,
		model.TypeJSON:     LevelWarning,
		model.TypeBytes:    LevelBlocking,
	},
}

// Classify maps a (previous type, new type) pair to a risk level. Identical
// pairs and pairs outside the table are safe. The function is pure and total;
// it is deliberately not symmetric.
func Classify(from, to model.DataType) Level {
	if from == to {
		return LevelSafe
	}
	row, ok := conversions[from]
	if !ok {
		return LevelSafe
	}
	level, ok := row[to]
	if !ok {
		return LevelSafe
	}
	return level
}

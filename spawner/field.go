package spawner

import "fmt"

// Field names one distribution slot of a Config.
type Field uint8

const (
	PositionX Field = iota
	PositionY
	PositionZ
	VelocityX
	VelocityY
	Size
	Rotation
	Amount
	TTL
	Interval
	fieldCount
)

var fieldNames = [fieldCount]string{
	PositionX: "position.x",
	PositionY: "position.y",
	PositionZ: "position.z",
	VelocityX: "velocity.x",
	VelocityY: "velocity.y",
	Size:      "size",
	Rotation:  "rotation",
	Amount:    "amount",
	TTL:       "ttl",
	Interval:  "interval",
}

// Fields lists every slot in file order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

func (f Field) String() string {
	if f < fieldCount {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if name == s {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownField, s)
}

// GradientStop selects one end of the gradient.
type GradientStop uint8

const (
	Begin GradientStop = iota
	End
)

func (s GradientStop) String() string {
	switch s {
	case Begin:
		return "begin"
	case End:
		return "end"
	}
	return fmt.Sprintf("GradientStop(%d)", uint8(s))
}

func ParseGradientStop(s string) (GradientStop, error) {
	switch s {
	case "begin":
		return Begin, nil
	case "end":
		return End, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownStop, s)
}

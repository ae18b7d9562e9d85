package benchmark

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrUnsupportedVariant   = errors.New("unsupported container variant")
	ErrUnsupportedPosition  = errors.New("unsupported position")
	ErrEmptyContainer       = errors.New("position index undefined for an empty container")
	ErrInvalidConfiguration = errors.New("invalid benchmark configuration")
)

// MaxSize is the largest container a configuration may request. The size
// tag on Configuration carries the same literal.
const MaxSize = 1 << 26

// Variant selects the container implementation under test.
type Variant int

const (
	variantUnknown Variant = iota
	ArrayBacked
	LinkedNodeBacked
)

func (v Variant) String() string {
	switch v {
	case ArrayBacked:
		return "array"
	case LinkedNodeBacked:
		return "linked"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	return v == ArrayBacked || v == LinkedNodeBacked
}

// ParseVariant accepts the canonical names plus the list spellings used by
// older clients ("array_list", "linked_list").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "array", "array_list", "arraylist":
		return ArrayBacked, nil
	case "linked", "linked_list", "linkedlist":
		return LinkedNodeBacked, nil
	}
	return variantUnknown, fmt.Errorf("%w: %q", ErrUnsupportedVariant, s)
}

func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVariant, int(v))
	}
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Position selects where insert, delete and retrieve operate.
type Position int

const (
	positionUnknown Position = iota
	Beginning
	Middle
	End
)

func (p Position) String() string {
	switch p {
	case Beginning:
		return "beginning"
	case Middle:
		return "middle"
	case End:
		return "end"
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

func (p Position) Valid() bool {
	return p == Beginning || p == Middle || p == End
}

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginning", "begin", "start":
		return Beginning, nil
	case "middle", "mid":
		return Middle, nil
	case "end":
		return End, nil
	}
	return positionUnknown, fmt.Errorf("%w: %q", ErrUnsupportedPosition, s)
}

func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPosition, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(b []byte) error {
	parsed, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Index resolves the position against a container holding size elements.
// It is evaluated again before every indexed operation because the size
// changes between them.
func (p Position) Index(size int) (int, error) {
	switch p {
	case Beginning:
		return 0, nil
	case Middle:
		return size / 2, nil
	case End:
		if size == 0 {
			return 0, ErrEmptyContainer
		}
		return size - 1, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedPosition, int(p))
}

// Configuration describes one benchmark request. It is a value type and is
// never modified after validation.
type Configuration struct {
	Variant  Variant  `json:"variant" yaml:"variant"`
	Position Position `json:"position" yaml:"position"`
	Size     int      `json:"size" yaml:"size" validate:"gte=0,lte=67108864"`
	Bound    int      `json:"bound" yaml:"bound" validate:"gt=0"`
	Trials   int      `json:"trials" yaml:"trials" validate:"gt=0"`
}

var configValidate = validator.New()

// Validate rejects configurations that cannot produce a complete trial.
// Enum errors wrap ErrUnsupportedVariant or ErrUnsupportedPosition, a zero
// size returns ErrEmptyContainer and range errors wrap ErrInvalidConfiguration.
func (c Configuration) Validate() error {
	if !c.Variant.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedVariant, int(c.Variant))
	}
	if !c.Position.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedPosition, int(c.Position))
	}
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	// Insert followed by delete restores the generated size, so with zero
	// elements retrieve has no valid index for any position.
	if c.Size == 0 {
		return fmt.Errorf("%w: size must be at least 1", ErrEmptyContainer)
	}
	return nil
}

// Key returns the storage grouping key of the configuration.
func (c Configuration) Key() ConfigurationKey {
	return ConfigurationKey{Variant: c.Variant, Position: c.Position}
}

// LogValue renders the configuration as a structured slog group.
func (c Configuration) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("variant", c.Variant.String()),
		slog.String("position", c.Position.String()),
		slog.Int("size", c.Size),
		slog.Int("bound", c.Bound),
		slog.Int("trials", c.Trials),
	)
}

// ConfigurationKey groups stored executions. It deliberately covers only
// the variant and position.
type ConfigurationKey struct {
	Variant  Variant  `json:"variant"`
	Position Position `json:"position"`
}

// String returns the canonical form, for example "array:middle".
func (k ConfigurationKey) String() string {
	return k.Variant.String() + ":" + k.Position.String()
}

// ParseConfigurationKey is the inverse of ConfigurationKey.String.
func ParseConfigurationKey(s string) (ConfigurationKey, error) {
	variant, position, ok := strings.Cut(s, ":")
	if !ok {
		return ConfigurationKey{}, fmt.Errorf("%w: malformed key %q", ErrInvalidConfiguration, s)
	}
	v, err := ParseVariant(variant)
	if err != nil {
		return ConfigurationKey{}, err
	}
	p, err := ParsePosition(position)
	if err != nil {
		return ConfigurationKey{}, err
	}
	return ConfigurationKey{Variant: v, Position: p}, nil
}

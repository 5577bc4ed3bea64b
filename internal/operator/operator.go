package operator

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Params is the string-keyed configuration of an operator. Recognized keys
// are codec specific.
type Params map[string]string

// Int returns the integer value of key, or def when the key is absent.
func (p Params) Int(key string, def int) (int, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parameter %s=%q: %v: %w", key, s, err, status.ErrInvalidArgument)
	}
	return v, nil
}

// merge returns p overlaid with call-time parameters.
func (p Params) merge(call Params) Params {
	return lo.Assign(Params{}, p, call)
}

// Info receives metadata produced by Compress. It may be nil.
type Info map[string]string

func (i Info) set(key string, v interface{}) {
	if i != nil {
		i[key] = fmt.Sprint(v)
	}
}

// Operator is a reversible transform over one typed N-D block.
type Operator interface {
	// Name is the codec identifier recorded in every frame.
	Name() string

	// Compress transforms in, a block of dims elements of typ, into out and
	// returns the number of bytes written. Call-time params override the
	// construction params. It fails with status.ErrUnsupportedType when
	// IsDataTypeValid(typ) is false.
	Compress(in []byte, dims []uint64, elemSize int, typ dtype.Type, out []byte, params Params, info Info) (int, error)

	// Decompress reverses Compress into out and returns the number of bytes
	// written. A frame whose self-description does not match dims and typ
	// fails with status.ErrCorruptInput.
	Decompress(in []byte, out []byte, dims []uint64, typ dtype.Type, params Params) (int, error)

	// IsDataTypeValid reports whether the codec accepts typ. It never
	// changes operator state.
	IsDataTypeValid(typ dtype.Type) bool

	// Bound returns the largest frame Compress can produce for n input bytes
	// with the construction params.
	Bound(n int) int
}

// Constructor builds an operator from its construction params.
type Constructor func(params Params, cfg *Config) (Operator, error)

// Config carries construction options shared by all codecs.
type Config struct {
	// Session holds multi-tier state. Nil gives every tiered operator a
	// private session.
	Session *TierSession
}

// Option configures New.
type Option func(*Config)

// WithSession shares a tier session with the constructed operator.
func WithSession(s *TierSession) Option {
	return func(c *Config) {
		c.Session = s
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		DeflateName:  func(p Params, _ *Config) (Operator, error) { return NewDeflate(p) },
		ShuffleName:  func(p Params, _ *Config) (Operator, error) { return NewShuffle(p), nil },
		ChecksumName: func(p Params, _ *Config) (Operator, error) { return NewChecksum(p), nil },
		TieredName:   func(p Params, c *Config) (Operator, error) { return NewTiered(p, c.Session) },
	}
)

// Register adds or replaces a codec constructor.
func Register(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = c
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// New creates a registered operator.
func New(name string, params Params, opts ...Option) (Operator, error) {
	registryMu.RLock()
	c, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("operator %q: %w", name, status.ErrNotFound)
	}
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return c(params, &cfg)
}

// base holds what every codec shares: its name and construction params.
type base struct {
	name   string
	params Params
}

func (b *base) Name() string { return b.name }

// checkType rejects element types the codec cannot handle.
func checkType(op Operator, typ dtype.Type) error {
	if !op.IsDataTypeValid(typ) {
		return fmt.Errorf("%s: %v: %w", op.Name(), typ, status.ErrUnsupportedType)
	}
	return nil
}

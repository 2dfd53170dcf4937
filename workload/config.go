package workload

import (
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned for a workload config that cannot run.
var ErrInvalidConfig = errors.New("workload: invalid config")

// Config describes a randomized allocate / release / reallocate sequence.
type Config struct {
	Seed  int64 `toml:"seed"`
	Steps int   `toml:"steps"`

	// request sizes are drawn uniformly from [MinSize, MaxSize]
	MinSize uint32 `toml:"min_size"`
	MaxSize uint32 `toml:"max_size"`

	// used when MaxSize is 0, relative to the arena capacity
	MaxSizeRatio Rational `toml:"max_size_ratio"`

	// chance a step allocates while blocks are live
	Alloc Rational `toml:"alloc"`
	// chance a non-allocating step grows a block instead of releasing it
	Realloc Rational `toml:"realloc"`
	// chance an allocation goes through ZeroAllocate
	Zero Rational `toml:"zero"`

	// run Check every CheckEvery steps, 0 disables
	CheckEvery int `toml:"check_every"`

	// release the remaining blocks at the end and expect a single free region
	ReleaseAll bool `toml:"release_all"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Seed:         1,
		Steps:        10000,
		MinSize:      1,
		MaxSizeRatio: NewRational(1, 64),
		Alloc:        NewRational(55, 100),
		Realloc:      NewRational(20, 100),
		Zero:         NewRational(25, 100),
		CheckEvery:   100,
		ReleaseAll:   true,
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys missing from the
// file keep their default.
func LoadConfig(path string) (Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load workload config %s", path)
	}
	return decodeConfig(tree)
}

// ParseConfig is LoadConfig over TOML text.
func ParseConfig(content string) (Config, error) {
	tree, err := toml.Load(content)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse workload config")
	}
	return decodeConfig(tree)
}

func decodeConfig(tree *toml.Tree) (Config, error) {
	conf := DefaultConfig()
	if err := tree.Unmarshal(&conf); err != nil {
		return Config{}, errors.Wrap(err, "decode workload config")
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate ...
func (c Config) Validate() error {
	if c.Steps < 0 {
		return errors.Wrapf(ErrInvalidConfig, "steps %d", c.Steps)
	}
	if c.MinSize == 0 {
		return errors.Wrap(ErrInvalidConfig, "min_size must be positive")
	}
	if c.MaxSize != 0 && c.MaxSize < c.MinSize {
		return errors.Wrapf(ErrInvalidConfig, "max_size %d below min_size %d", c.MaxSize, c.MinSize)
	}
	if c.MaxSize == 0 && c.MaxSizeRatio.Denominator == 0 {
		return errors.Wrap(ErrInvalidConfig, "max_size_ratio has a zero denominator")
	}
	if c.CheckEvery < 0 {
		return errors.Wrapf(ErrInvalidConfig, "check_every %d", c.CheckEvery)
	}

	probabilities := []struct {
		name string
		r    Rational
	}{
		{name: "alloc", r: c.Alloc},
		{name: "realloc", r: c.Realloc},
		{name: "zero", r: c.Zero},
	}
	for _, p := range probabilities {
		if !p.r.Valid() {
			return errors.Wrapf(ErrInvalidConfig, "%s is %d/%d", p.name, p.r.Nominator, p.r.Denominator)
		}
	}
	return nil
}

// maxSize resolves the largest request for an arena of the given capacity.
func (c Config) maxSize(capacity uint32) uint32 {
	size := c.MaxSize
	if size == 0 {
		size = c.MaxSizeRatio.MulUint32(capacity)
	}
	if size < c.MinSize {
		size = c.MinSize
	}
	return size
}

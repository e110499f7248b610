// Package config loads task properties and validates them into an
// immutable DerivativeSpec.
//
// Properties come from a YAML file with a top-level "tasks" map, optionally
// overridden by MEDIAFILTER_<TASK>_<KEY> environment variables (dots in the
// key become underscores).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides
const EnvPrefix = "MEDIAFILTER_"

// Source resolves raw property values for a task
type Source interface {
	Lookup(task, key string) (string, bool)
}

// Properties is the typed view of one task's properties. Int, Float and
// Bool fail only when a value is present and does not parse.
type Properties interface {
	Task() string
	String(key, def string) string
	Int(key string, def int) (int, error)
	Float(key string, def float64) (float64, error)
	Bool(key string, def bool) (bool, error)
	Has(key string) bool
}

// MapSource holds properties keyed by task then key
type MapSource map[string]map[string]string

// Lookup implements Source
func (m MapSource) Lookup(task, key string) (string, bool) {
	props, ok := m[task]
	if !ok {
		return "", false
	}
	v, ok := props[key]
	return v, ok
}

// Tasks returns the task ids defined in the source
func (m MapSource) Tasks() []string {
	out := make([]string, 0, len(m))
	for task := range m {
		out = append(out, task)
	}
	return out
}

type fileConfig struct {
	Tasks map[string]map[string]any `yaml:"tasks"`
}

// ParseYAML reads a task file. Scalar values of any YAML type are kept in
// their string form.
func ParseYAML(data []byte) (MapSource, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse task config: %w", err)
	}
	out := make(MapSource, len(fc.Tasks))
	for task, props := range fc.Tasks {
		m := make(map[string]string, len(props))
		for k, v := range props {
			switch tv := v.(type) {
			case nil:
				continue
			case []any:
				parts := make([]string, len(tv))
				for i, p := range tv {
					parts[i] = fmt.Sprint(p)
				}
				m[k] = strings.Join(parts, ",")
			default:
				m[k] = fmt.Sprint(tv)
			}
		}
		out[task] = m
	}
	return out, nil
}

// LoadFile reads a YAML task file from disk
func LoadFile(path string) (MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task config %s: %w", path, err)
	}
	return ParseYAML(data)
}

// EnvSource looks properties up in the process environment
type EnvSource struct {
	Prefix string
	Getenv func(string) string
}

// NewEnvSource returns an EnvSource over os.LookupEnv with EnvPrefix
func NewEnvSource() EnvSource {
	return EnvSource{Prefix: EnvPrefix}
}

// EnvKey returns the variable name overriding key for task
func (e EnvSource) EnvKey(task, key string) string {
	name := task + "_" + key
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return e.Prefix + strings.ToUpper(name)
}

// Lookup implements Source
func (e EnvSource) Lookup(task, key string) (string, bool) {
	name := e.EnvKey(task, key)
	if e.Getenv != nil {
		v := e.Getenv(name)
		return v, v != ""
	}
	return os.LookupEnv(name)
}

// Layered consults sources in order; the first hit wins
type Layered []Source

// Lookup implements Source
func (l Layered) Lookup(task, key string) (string, bool) {
	for _, s := range l {
		if v, ok := s.Lookup(task, key); ok {
			return v, true
		}
	}
	return "", false
}

// LoadDotEnv loads .env style files into the environment, ignoring files
// that do not exist
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

type taskProperties struct {
	task string
	src  Source
}

// ForTask scopes src to task
func ForTask(src Source, task string) Properties {
	return &taskProperties{task: task, src: src}
}

func (p *taskProperties) Task() string {
	return p.task
}

func (p *taskProperties) lookup(key string) (string, bool) {
	v, ok := p.src.Lookup(p.task, key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *taskProperties) Has(key string) bool {
	_, ok := p.lookup(key)
	return ok
}

func (p *taskProperties) String(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *taskProperties) Int(key string, def int) (int, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, configErr(p.task, key, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return n, nil
}

func (p *taskProperties) Float(key string, def float64) (float64, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, configErr(p.task, key, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, configErr(p.task, key, fmt.Errorf("%w: %q is not a finite number", ErrInvalid, v))
	}
	return f, nil
}

func (p *taskProperties) Bool(key string, def bool) (bool, error) {
	v, ok := p.lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, configErr(p.task, key, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return b, nil
}

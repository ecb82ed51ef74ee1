package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/internal/timespec"
	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/simtime"
)

const (
	// RedisURLEnv overrides the Redis URL of every configuration.
	RedisURLEnv = "LOCKSTEP_REDIS_URL"
	// DefaultRedisURL is used when neither the file nor the environment set one.
	DefaultRedisURL = "redis://localhost:6379"
)

// FederateConfig represents one federate file (plane.yml)
type FederateConfig struct {
	Version    string            `yaml:"version"`
	Federation FederationSection `yaml:"federation"`
	Federate   FederateSection   `yaml:"federate"`
	Objects    ObjectsSection    `yaml:"objects"`
	Redis      *RedisSection     `yaml:"redis,omitempty"`

	// Parsed durations, filled by Validate.
	TimeLimit simtime.Time `yaml:"-"`
	Timestep  simtime.Time `yaml:"-"`
	Lookahead simtime.Time `yaml:"-"`
	// Document is the object model named by federation.fom, if any.
	Document *fom.Document `yaml:"-"`
}

// FederationSection names the execution to create or join
type FederationSection struct {
	Name            string `yaml:"name"`
	FOM             string `yaml:"fom,omitempty"`        // Path to the object model document
	SyncPoint       string `yaml:"sync_point,omitempty"` // Default: syncPoint
	ExpectFederates int    `yaml:"expect_federates,omitempty"`
	SyncFailure     string `yaml:"sync_failure,omitempty"` // "proceed" (default) or "abort"
}

// FederateSection configures the logical processor
type FederateSection struct {
	Name         string       `yaml:"name"`
	TimeLimit    string       `yaml:"time_limit"`
	Timestep     string       `yaml:"timestep"`
	Lookahead    string       `yaml:"lookahead,omitempty"` // Default: the timestep
	Policy       string       `yaml:"policy,omitempty"`    // "timestep" (default) or "nextdelta"
	Regulating   *bool        `yaml:"regulating,omitempty"`
	Constrained  *bool        `yaml:"constrained,omitempty"`
	TraceFile    string       `yaml:"trace_file,omitempty"`
	ProducedFile string       `yaml:"produced_file,omitempty"`
	ConsumedFile string       `yaml:"consumed_file,omitempty"`
	Interactive  bool         `yaml:"interactive,omitempty"`
	DestroyRetry *RetryConfig `yaml:"destroy_retry,omitempty"`
}

// RetryConfig bounds the creator's destroy retries (wall-clock durations)
type RetryConfig struct {
	Initial string `yaml:"initial,omitempty"`
	Max     string `yaml:"max,omitempty"`
}

// ObjectsSection lists the instances the federate publishes and subscribes to
type ObjectsSection struct {
	Published  []ObjectConfig `yaml:"published,omitempty"`
	Subscribed []ObjectConfig `yaml:"subscribed,omitempty"`
}

// ObjectConfig declares one object instance
type ObjectConfig struct {
	Class      string            `yaml:"class"`
	Name       string            `yaml:"name"`
	Attributes []AttributeConfig `yaml:"attributes"`
}

// AttributeConfig declares one attribute of an instance
type AttributeConfig struct {
	Name    string  `yaml:"name"`
	Kind    string  `yaml:"kind"`              // int, float or bool
	Initial float64 `yaml:"initial,omitempty"` // bool: non-zero is true
	Rate    float64 `yaml:"rate,omitempty"`    // Change per simulated second (published only)
}

// RedisSection points a remote federate at the bus
type RedisSection struct {
	URL      string `yaml:"url,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// Validate performs strict validation on the configuration and parses its
// durations. Relative paths are resolved against baseDir.
func (c *FederateConfig) Validate(baseDir string) error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Federation.Name == "" {
		return fmt.Errorf("federation.name is required")
	}
	if c.Federate.Name == "" {
		return fmt.Errorf("federate.name is required")
	}
	if c.Federation.ExpectFederates < 0 {
		return fmt.Errorf("federation.expect_federates must be >= 0, got %d", c.Federation.ExpectFederates)
	}
	if _, ok := lp.ParseSyncFailureMode(c.Federation.SyncFailure); !ok {
		return fmt.Errorf("invalid federation.sync_failure: %s (must be 'proceed' or 'abort')", c.Federation.SyncFailure)
	}

	step, limit, err := timespec.ParseStep(c.Federate.Timestep, c.Federate.TimeLimit)
	if err != nil {
		return fmt.Errorf("federate '%s': %w", c.Federate.Name, err)
	}
	c.Timestep, c.TimeLimit = step, limit
	c.Lookahead = step
	if c.Federate.Lookahead != "" {
		if c.Lookahead, err = timespec.Parse(c.Federate.Lookahead); err != nil {
			return fmt.Errorf("federate '%s': invalid lookahead: %w", c.Federate.Name, err)
		}
	}
	// Grants are strictly below every other regulator's promise, so two
	// regulating and constrained federates at zero lookahead never advance.
	if c.Lookahead.IsZero() && c.IsRegulating() && c.IsConstrained() {
		return fmt.Errorf("federate '%s': federate.lookahead must be positive when the federate is both regulating and constrained", c.Federate.Name)
	}

	switch lp.PolicyKind(c.Federate.Policy) {
	case "", lp.PolicyTimeStep, lp.PolicyNextDelta:
	default:
		return fmt.Errorf("federate '%s': invalid policy: %s (must be 'timestep' or 'nextdelta')", c.Federate.Name, c.Federate.Policy)
	}

	if c.Redis != nil && c.Redis.Instance != "" {
		if err := fedbus.ValidateInstanceName(c.Redis.Instance); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	if r := c.Federate.DestroyRetry; r != nil {
		if _, _, err := r.Durations(); err != nil {
			return fmt.Errorf("federate '%s': %w", c.Federate.Name, err)
		}
	}

	if err := c.Objects.Validate(); err != nil {
		return fmt.Errorf("federate '%s': %w", c.Federate.Name, err)
	}

	if c.Federation.FOM != "" {
		path := c.Federation.FOM
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		doc, err := fom.LoadDocument(path)
		if err != nil {
			return fmt.Errorf("federation '%s': %w", c.Federation.Name, err)
		}
		if err := c.Objects.CheckAgainst(doc); err != nil {
			return fmt.Errorf("federate '%s': %w", c.Federate.Name, err)
		}
		c.Federation.FOM = path
		c.Document = doc
	}
	return nil
}

// IsRegulating reports the regulating flag. Federates regulate by default.
func (c *FederateConfig) IsRegulating() bool {
	return c.Federate.Regulating == nil || *c.Federate.Regulating
}

// IsConstrained reports the constrained flag. Federates are constrained by default.
func (c *FederateConfig) IsConstrained() bool {
	return c.Federate.Constrained == nil || *c.Federate.Constrained
}

// RedisURL returns the bus URL: the environment wins over the file.
func (c *FederateConfig) RedisURL() string {
	if env := os.Getenv(RedisURLEnv); env != "" {
		return env
	}
	if c.Redis != nil && c.Redis.URL != "" {
		return c.Redis.URL
	}
	return DefaultRedisURL
}

// RedisInstance returns the bus namespace.
func (c *FederateConfig) RedisInstance() string {
	if c.Redis != nil && c.Redis.Instance != "" {
		return c.Redis.Instance
	}
	return fedbus.DefaultInstance
}

// Validate checks object and attribute declarations.
func (o *ObjectsSection) Validate() error {
	if err := validateObjects("published", o.Published, true); err != nil {
		return err
	}
	return validateObjects("subscribed", o.Subscribed, false)
}

func validateObjects(section string, objs []ObjectConfig, published bool) error {
	seen := make(map[string]bool, len(objs))
	for i, obj := range objs {
		if obj.Class == "" {
			return fmt.Errorf("objects.%s[%d]: class is required", section, i)
		}
		if obj.Name == "" {
			return fmt.Errorf("objects.%s[%d]: name is required", section, i)
		}
		if seen[obj.Name] {
			return fmt.Errorf("objects.%s: duplicate object name '%s'", section, obj.Name)
		}
		seen[obj.Name] = true
		if len(obj.Attributes) == 0 {
			return fmt.Errorf("object '%s': at least one attribute is required", obj.Name)
		}
		attrs := make(map[string]bool, len(obj.Attributes))
		for _, a := range obj.Attributes {
			if a.Name == "" {
				return fmt.Errorf("object '%s': attribute name is required", obj.Name)
			}
			if attrs[a.Name] {
				return fmt.Errorf("object '%s': duplicate attribute '%s'", obj.Name, a.Name)
			}
			attrs[a.Name] = true
			if _, err := fom.ParseKind(a.Kind); err != nil {
				return fmt.Errorf("object '%s' attribute '%s': %w", obj.Name, a.Name, err)
			}
			if !published && a.Rate != 0 {
				return fmt.Errorf("object '%s' attribute '%s': rate is only valid on published objects", obj.Name, a.Name)
			}
		}
	}
	return nil
}

// CheckAgainst verifies every declared class and attribute exists in doc.
func (o *ObjectsSection) CheckAgainst(doc *fom.Document) error {
	classes := make(map[string]map[string]bool, len(doc.Classes))
	for _, c := range doc.Classes {
		attrs := make(map[string]bool, len(c.Attributes))
		for _, a := range c.Attributes {
			attrs[a] = true
		}
		classes[c.Name] = attrs
	}
	for _, obj := range append(append([]ObjectConfig{}, o.Published...), o.Subscribed...) {
		attrs, ok := classes[obj.Class]
		if !ok {
			return fmt.Errorf("object '%s': class '%s' is not in the object model", obj.Name, obj.Class)
		}
		for _, a := range obj.Attributes {
			if !attrs[a.Name] {
				return fmt.Errorf("object '%s': attribute '%s' is not in class '%s'", obj.Name, a.Name, obj.Class)
			}
		}
	}
	return nil
}

// Load reads and validates a federate file from the specified path
func Load(path string) (*FederateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FederateConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

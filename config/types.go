package config

// Config is the serializable definition of a workflow.
type Config struct {
	Name        string `yaml:"Name" json:"Name"`
	Description string `yaml:"Description,omitempty" json:"Description,omitempty"`

	// MaxHops bounds re-targets. Zero selects the relay default.
	MaxHops int `yaml:"MaxHops,omitempty" json:"MaxHops,omitempty"`

	// Coordinator names a participant to use as start node and for final
	// synthesis. When empty, a coordinator is derived on Backend.
	Coordinator string `yaml:"Coordinator,omitempty" json:"Coordinator,omitempty"`

	// Backend is the default provider for participants and the derived
	// coordinator.
	Backend Backend `yaml:"Backend,omitempty" json:"Backend,omitempty"`

	Participants []Participant `yaml:"Participants,omitempty" json:"Participants,omitempty"`
	Store        Store         `yaml:"Store,omitempty" json:"Store,omitempty"`
	Logging      Logging       `yaml:"Logging,omitempty" json:"Logging,omitempty"`

	// basePath is the directory the config was loaded from. Relative
	// instruction paths resolve against it.
	basePath string
}

// BasePath returns the directory relative paths resolve against.
func (c *Config) BasePath() string {
	return c.basePath
}

// SetBasePath overrides the directory relative paths resolve against.
func (c *Config) SetBasePath(dir string) {
	c.basePath = dir
}

// Backend selects an LLM provider and model.
type Backend struct {
	Provider string `yaml:"Provider,omitempty" json:"Provider,omitempty"`
	Model    string `yaml:"Model,omitempty" json:"Model,omitempty"`
}

// Participant is the definition of one LLM-backed participant.
type Participant struct {
	ID          string `yaml:"ID" json:"ID"`
	DisplayName string `yaml:"DisplayName,omitempty" json:"DisplayName,omitempty"`
	Description string `yaml:"Description" json:"Description"`

	// Provider and Model override the workflow Backend.
	Provider string `yaml:"Provider,omitempty" json:"Provider,omitempty"`
	Model    string `yaml:"Model,omitempty" json:"Model,omitempty"`

	Instructions string `yaml:"Instructions,omitempty" json:"Instructions,omitempty"`

	// InstructionsFiles are paths or doublestar patterns whose contents are
	// appended to Instructions in order. Matches of one pattern are sorted.
	InstructionsFiles []string `yaml:"InstructionsFiles,omitempty" json:"InstructionsFiles,omitempty"`

	Retry *Retry `yaml:"Retry,omitempty" json:"Retry,omitempty"`
}

// Retry configures backoff around a participant's provider calls.
type Retry struct {
	MaxAttempts int    `yaml:"MaxAttempts,omitempty" json:"MaxAttempts,omitempty"`
	BaseWait    string `yaml:"BaseWait,omitempty" json:"BaseWait,omitempty"`
	MaxWait     string `yaml:"MaxWait,omitempty" json:"MaxWait,omitempty"`
}

// Store selects where checkpoints are kept.
type Store struct {
	// Type is one of memory, file, sqlite or redis.
	Type string `yaml:"Type,omitempty" json:"Type,omitempty"`

	// Path is the directory of a file store or the database of a sqlite
	// store.
	Path string `yaml:"Path,omitempty" json:"Path,omitempty"`

	// Addr is the redis server address.
	Addr   string `yaml:"Addr,omitempty" json:"Addr,omitempty"`
	Prefix string `yaml:"Prefix,omitempty" json:"Prefix,omitempty"`

	// TTL expires unconsumed redis checkpoints, e.g. "72h".
	TTL string `yaml:"TTL,omitempty" json:"TTL,omitempty"`
}

// Logging configures the logger.
type Logging struct {
	Level  string `yaml:"Level,omitempty" json:"Level,omitempty"`
	Format string `yaml:"Format,omitempty" json:"Format,omitempty"`
}

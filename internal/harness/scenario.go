package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a registry test scenario: classes to register,
// repositories to create, steps to execute, and assertions on the final
// state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Classes is inline CUE declaring classes under "class".
	Classes string `yaml:"classes,omitempty"`

	// ClassFiles lists CUE files with more class declarations.
	// Paths are relative to the scenario file location.
	ClassFiles []string `yaml:"class_files,omitempty"`

	// Repos names the repositories the core creates, in order.
	Repos []string `yaml:"repos"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Exactly one of the operation fields is set.
type Step struct {
	Create    *CreateStep    `yaml:"create,omitempty"`
	Set       *SetStep       `yaml:"set,omitempty"`
	Forward   *LinkStep      `yaml:"forward,omitempty"`
	Unforward *LinkStep      `yaml:"unforward,omitempty"`
	Destroy   *TargetStep    `yaml:"destroy,omitempty"`
	Available *AvailableStep `yaml:"available,omitempty"`
	Loading   *LoadingStep   `yaml:"loading,omitempty"`
	Clear     *RepoStep      `yaml:"clear,omitempty"`
	Remove    *RemoveStep    `yaml:"remove,omitempty"`
	Drain     *RepoStep      `yaml:"drain,omitempty"`
	Default   *RepoStep      `yaml:"default,omitempty"`
	Send      *SendStep      `yaml:"send,omitempty"`

	// Fails marks a step that is expected to be refused.
	Fails bool `yaml:"fails,omitempty"`
}

// CreateStep constructs entities through the factory.
type CreateStep struct {
	Type string `yaml:"type"`
	// As labels the entity. With Count above 1 the labels are As-1, As-2, ...
	As    string         `yaml:"as"`
	Count int            `yaml:"count,omitempty"`
	Props map[string]any `yaml:"props,omitempty"`
	// Repo and Parent choose where the entity joins. Parent, an object
	// label, wins over Repo. With neither, the core default repository is
	// used when there is one.
	Repo   string `yaml:"repo,omitempty"`
	Parent string `yaml:"parent,omitempty"`
}

// SetStep assigns a field of a labelled object.
type SetStep struct {
	Object string `yaml:"object"`
	Field  string `yaml:"field"`
	Value  any    `yaml:"value"`
}

// LinkStep makes Repo forward (or stop forwarding) From.
type LinkStep struct {
	Repo string `yaml:"repo"`
	From string `yaml:"from"`
}

// TargetStep names an object or a repository.
type TargetStep struct {
	Object string `yaml:"object,omitempty"`
	Repo   string `yaml:"repo,omitempty"`
}

// AvailableStep sets availability of an object or a repository.
type AvailableStep struct {
	Object string `yaml:"object,omitempty"`
	Repo   string `yaml:"repo,omitempty"`
	Value  bool   `yaml:"value"`
}

// LoadingStep toggles the loading flag of a repository.
type LoadingStep struct {
	Repo  string `yaml:"repo"`
	Value bool   `yaml:"value"`
}

// RepoStep names a repository.
type RepoStep struct {
	Repo string `yaml:"repo"`
}

// RemoveStep removes a labelled object from a repository.
type RemoveStep struct {
	Repo     string `yaml:"repo"`
	Object   string `yaml:"object"`
	Suppress bool   `yaml:"suppress,omitempty"`
}

// SendStep sends Payload from Repo. To lists repository names or remote
// repository ids; an empty list broadcasts.
type SendStep struct {
	Repo    string   `yaml:"repo"`
	To      []string `yaml:"to,omitempty"`
	Payload string   `yaml:"payload"`
}

// Kind returns the name of the operation the step performs, or "" if none
// or more than one is set.
func (s Step) Kind() string {
	kinds := []struct {
		name string
		set  bool
	}{
		{"create", s.Create != nil},
		{"set", s.Set != nil},
		{"forward", s.Forward != nil},
		{"unforward", s.Unforward != nil},
		{"destroy", s.Destroy != nil},
		{"available", s.Available != nil},
		{"loading", s.Loading != nil},
		{"clear", s.Clear != nil},
		{"remove", s.Remove != nil},
		{"drain", s.Drain != nil},
		{"default", s.Default != nil},
		{"send", s.Send != nil},
	}
	found := ""
	for _, k := range kinds {
		if !k.set {
			continue
		}
		if found != "" {
			return ""
		}
		found = k.name
	}
	return found
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type. See the Assert* constants.
	Type string `yaml:"type"`

	// Repo is the repository under test (objects, added, updated, deleted,
	// forwarded, available, batches, messages, default).
	Repo string `yaml:"repo,omitempty"`

	// Object is the labelled object under test (available, field).
	Object string `yaml:"object,omitempty"`

	// Objects are expected object labels (objects, added, updated, deleted).
	Objects []string `yaml:"objects,omitempty"`

	// Repos are expected repository names (forwarded, repos).
	Repos []string `yaml:"repos,omitempty"`

	// Field is the field name (field).
	Field string `yaml:"field,omitempty"`

	// Value is the expected value (available, field).
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of occurrences (batches, messages).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertObjects   = "objects"
	AssertAdded     = "added"
	AssertUpdated   = "updated"
	AssertDeleted   = "deleted"
	AssertForwarded = "forwarded"
	AssertAvailable = "available"
	AssertField     = "field"
	AssertBatches   = "batches"
	AssertMessages  = "messages"
	AssertDefault   = "default"
	AssertRepos     = "repos"
)

// LoadScenario reads and parses a scenario YAML file. Class file paths are
// resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.ClassFiles {
		if !filepath.IsAbs(p) {
			scenario.ClassFiles[i] = filepath.Join(base, p)
		}
	}
	for _, p := range scenario.ClassFiles {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: class file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and references
// name declared repositories.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	repos := make(map[string]bool, len(s.Repos))
	for i, name := range s.Repos {
		if name == "" {
			return fmt.Errorf("repos[%d]: name is required", i)
		}
		if repos[name] {
			return fmt.Errorf("repos[%d]: duplicate repository %q", i, name)
		}
		repos[name] = true
	}
	knownRepo := func(where, name string) error {
		if name != "" && !repos[name] {
			return fmt.Errorf("%s: unknown repository %q", where, name)
		}
		return nil
	}

	for i, step := range s.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		kind := step.Kind()
		if kind == "" {
			return fmt.Errorf("%s: exactly one operation is required", where)
		}
		if err := validateStep(where, kind, step, knownRepo); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
		if err := knownRepo(fmt.Sprintf("assertions[%d]", i), a.Repo); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where, kind string, s Step, knownRepo func(string, string) error) error {
	where = where + "." + kind
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s: %s is required", where, field)
		}
		return nil
	}
	var errs []error
	switch kind {
	case "create":
		errs = append(errs, require("type", s.Create.Type), require("as", s.Create.As), knownRepo(where, s.Create.Repo))
		if s.Create.Count < 0 {
			errs = append(errs, fmt.Errorf("%s: count must be non-negative", where))
		}
	case "set":
		errs = append(errs, require("object", s.Set.Object), require("field", s.Set.Field))
	case "forward", "unforward":
		link := s.Forward
		if kind == "unforward" {
			link = s.Unforward
		}
		errs = append(errs, require("repo", link.Repo), require("from", link.From),
			knownRepo(where, link.Repo), knownRepo(where, link.From))
	case "destroy":
		errs = append(errs, requireTarget(where, s.Destroy.Object, s.Destroy.Repo), knownRepo(where, s.Destroy.Repo))
	case "available":
		errs = append(errs, requireTarget(where, s.Available.Object, s.Available.Repo), knownRepo(where, s.Available.Repo))
	case "loading":
		errs = append(errs, require("repo", s.Loading.Repo), knownRepo(where, s.Loading.Repo))
	case "clear", "drain", "default":
		r := map[string]*RepoStep{"clear": s.Clear, "drain": s.Drain, "default": s.Default}[kind]
		errs = append(errs, require("repo", r.Repo), knownRepo(where, r.Repo))
	case "remove":
		errs = append(errs, require("repo", s.Remove.Repo), require("object", s.Remove.Object), knownRepo(where, s.Remove.Repo))
	case "send":
		errs = append(errs, require("repo", s.Send.Repo), knownRepo(where, s.Send.Repo))
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func requireTarget(where, object, repo string) error {
	if (object == "") == (repo == "") {
		return fmt.Errorf("%s: exactly one of object or repo is required", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertObjects, AssertAdded, AssertUpdated, AssertDeleted, AssertForwarded, AssertBatches:
		if a.Repo == "" {
			return fmt.Errorf("assertions[%d]: repo is required for %s", index, a.Type)
		}
		if a.Type == AssertBatches && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for batches", index)
		}
	case AssertAvailable:
		if err := requireTarget(fmt.Sprintf("assertions[%d]", index), a.Object, a.Repo); err != nil {
			return err
		}
		if _, ok := a.Value.(bool); !ok {
			return fmt.Errorf("assertions[%d]: value must be a bool for available", index)
		}
	case AssertField:
		if a.Object == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: object and field are required for field", index)
		}
	case AssertMessages:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for messages", index)
		}
	case AssertDefault, AssertRepos:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

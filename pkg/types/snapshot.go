package types

import (
	"errors"
	"strings"
)

// Snapshot is a point-in-time capture of one environment's resources.
// Timestamp is opaque to the comparison pipeline.
type Snapshot struct {
	Environment string      `json:"environment" yaml:"environment"`
	Timestamp   string      `json:"timestamp" yaml:"timestamp"`
	Region      string      `json:"region,omitempty" yaml:"region,omitempty"`
	Resources   ResourceSet `json:"resources" yaml:"resources"`
}

// Validate checks if the Snapshot has all required fields
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if strings.TrimSpace(s.Environment) == "" {
		return errors.New("snapshot environment is required")
	}
	for cat, records := range s.Resources {
		if strings.TrimSpace(string(cat)) == "" {
			return errors.New("snapshot contains an empty category name")
		}
		for _, rec := range records {
			if rec == nil {
				return errors.New("snapshot category " + string(cat) + " contains a null record")
			}
		}
	}
	return nil
}

// ResourceCount returns the number of resources in the snapshot
func (s *Snapshot) ResourceCount() int {
	if s == nil {
		return 0
	}
	return s.Resources.Count()
}

// Clone creates a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Environment: s.Environment,
		Timestamp:   s.Timestamp,
		Region:      s.Region,
		Resources:   s.Resources.Clone(),
	}
}

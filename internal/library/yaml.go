package library

import (
	"errors"
	"fmt"
	"io"

	"github.com/aristath/sentinel-desk/internal/domain"
	"gopkg.in/yaml.v3"
)

// policyFile is the YAML layout used by import and export.
type policyFile struct {
	Policies []domain.AllocationPolicy `yaml:"policies"`
}

// ExportPolicies writes policies as YAML.
func ExportPolicies(w io.Writer, records []Record[domain.AllocationPolicy]) error {
	file := policyFile{Policies: make([]domain.AllocationPolicy, 0, len(records))}
	for _, r := range records {
		file.Policies = append(file.Policies, r.Value)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode policies: %w", err)
	}
	return enc.Close()
}

// ImportPolicies reads policies from YAML. Every policy needs a name.
func ImportPolicies(r io.Reader) ([]domain.AllocationPolicy, error) {
	var file policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode policies: %w", err)
	}
	for i, p := range file.Policies {
		if p.Name == "" {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("policies[%d].name", i), Value: p.Name, Reason: "is required"}
		}
	}
	return file.Policies, nil
}

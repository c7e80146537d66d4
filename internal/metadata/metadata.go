// Package metadata loads and validates the descriptive metadata that
// accompanies an embedding contribution.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid contribution metadata")

// Embedding data types.
const (
	DataTypeObsEmbedding = "obs_embedding"
	DataTypeVarEmbedding = "var_embedding"
)

// DefaultMeasurementName is used when the metadata file leaves it empty.
const DefaultMeasurementName = "RNA"

// Contact identifies a person responsible for a contribution.
type Contact struct {
	Name        string `yaml:"name" json:"name"`
	Email       string `yaml:"email" json:"email"`
	Affiliation string `yaml:"affiliation" json:"affiliation"`
}

// Metadata describes an embedding contribution. JSON files are read through
// the YAML decoder, so both formats share these tags.
type Metadata struct {
	ID                 string    `yaml:"id" json:"id"`
	Title              string    `yaml:"title" json:"title"`
	Description        string    `yaml:"description" json:"description"`
	PrimaryContact     Contact   `yaml:"primary_contact" json:"primary_contact"`
	AdditionalContacts []Contact `yaml:"additional_contacts,omitempty" json:"additional_contacts,omitempty"`
	DOI                string    `yaml:"DOI,omitempty" json:"DOI,omitempty"`
	ExperimentName     string    `yaml:"experiment_name" json:"experiment_name"`
	MeasurementName    string    `yaml:"measurement_name" json:"measurement_name"`
	NFeatures          int       `yaml:"n_features" json:"n_features"`
	DataType           string    `yaml:"data_type" json:"data_type"`
	CensusVersion      string    `yaml:"census_version" json:"census_version"`
	ModelLink          string    `yaml:"model_link,omitempty" json:"model_link,omitempty"`
	SubmissionDate     string    `yaml:"submission_date,omitempty" json:"submission_date,omitempty"`
}

// Load reads metadata from a .json, .yaml or .yml file.
func Load(path string) (*Metadata, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported metadata file %s: expected .json or .yaml", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	md, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return md, nil
}

// Parse decodes metadata from YAML or JSON bytes and applies defaults.
func Parse(data []byte) (*Metadata, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, err
	}
	if md.MeasurementName == "" {
		md.MeasurementName = DefaultMeasurementName
	}
	if md.DataType == "" {
		md.DataType = DataTypeObsEmbedding
	}
	md.normalize()
	return &md, nil
}

// normalize brings free-text fields into NFC so that manifests written from
// differently composed input compare equal byte for byte.
func (m *Metadata) normalize() {
	for _, s := range []*string{&m.Title, &m.Description} {
		*s = norm.NFC.String(strings.TrimSpace(*s))
	}
	normalizeContact(&m.PrimaryContact)
	for i := range m.AdditionalContacts {
		normalizeContact(&m.AdditionalContacts[i])
	}
}

func normalizeContact(c *Contact) {
	c.Name = norm.NFC.String(strings.TrimSpace(c.Name))
	c.Affiliation = norm.NFC.String(strings.TrimSpace(c.Affiliation))
	c.Email = strings.TrimSpace(c.Email)
}

// Validate checks the metadata against the accession it is being ingested
// under.
func (m *Metadata) Validate(accession string) error {
	if accession == "" {
		return fmt.Errorf("%w: accession must not be empty", ErrInvalid)
	}
	if m.ID != accession {
		return fmt.Errorf("%w: id %q does not match accession %q", ErrInvalid, m.ID, accession)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalid)
	}
	if m.NFeatures <= 0 {
		return fmt.Errorf("%w: n_features must be positive, got %d", ErrInvalid, m.NFeatures)
	}
	if m.DataType != DataTypeObsEmbedding && m.DataType != DataTypeVarEmbedding {
		return fmt.Errorf("%w: data_type %q must be one of: %s, %s",
			ErrInvalid, m.DataType, DataTypeObsEmbedding, DataTypeVarEmbedding)
	}
	if err := validateContact(m.PrimaryContact, "primary_contact"); err != nil {
		return err
	}
	for i, c := range m.AdditionalContacts {
		if err := validateContact(c, fmt.Sprintf("additional_contacts[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateContact(c Contact, field string) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: %s.name must not be empty", ErrInvalid, field)
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: %s.email %q is not an email address", ErrInvalid, field, c.Email)
	}
	return nil
}

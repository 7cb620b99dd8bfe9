package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perchlabs/perch/internal/domain"
)

// Record is one raw person entry from the embeddings file. Ids may arrive
// as JSON strings or numbers; NetID is used when the id field is absent.
type Record struct {
	ID        flexID    `json:"id"`
	NetID     flexID    `json:"netid"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	College   *string   `json:"college"`
	Year      *int      `json:"year"`
	Major     *string   `json:"major"`
	Image     *string   `json:"image"`
	Email     *string   `json:"email"`
	Embedding []float32 `json:"embedding"`
}

func (r *Record) id() string {
	if r.ID != "" {
		return string(r.ID)
	}
	return string(r.NetID)
}

func (r *Record) person() domain.Person {
	return domain.Person{
		ID:        r.id(),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		College:   emptyToNil(r.College),
		Year:      r.Year,
		Major:     emptyToNil(r.Major),
		Image:     emptyToNil(r.Image),
		Email:     emptyToNil(r.Email),
	}
}

func emptyToNil(s *string) *string {
	if s != nil && *s == "" {
		return nil
	}
	return s
}

// flexID decodes a JSON string or number into its string form.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// LoadFile reads a JSON array of records and builds the catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read embeddings file: %w", err)
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: parse embeddings file %s: %v", domain.ErrInvalidData, path, err)
	}

	cat, err := Load(records)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", path, err)
	}
	return cat, nil
}

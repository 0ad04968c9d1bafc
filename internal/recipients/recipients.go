// Package recipients maps entities to report recipients.
package recipients

import (
	"os"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// DefaultCC is used for entities without a CC mapping and when the file
// defines no default.
var DefaultCC = []string{"cc@your-company.com"}

// Book holds the entity -> To/CC mapping loaded from recipients.json. The
// "default" key of the cc map applies to unmapped entities.
type Book struct {
	To map[string][]string `json:"to"`
	CC map[string][]string `json:"cc"`
}

// Load reads and decodes a recipients file.
func Load(path string) (*Book, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "recipients: read %s", path)
	}
	var b Book
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrapf(err, "recipients: decode %s", path)
	}
	if b.To == nil {
		b.To = map[string][]string{}
	}
	if b.CC == nil {
		b.CC = map[string][]string{}
	}
	return &b, nil
}

// Entities lists every entity with a To mapping.
func (b *Book) Entities() []string {
	out := make([]string, 0, len(b.To))
	for e := range b.To {
		out = append(out, e)
	}
	return out
}

// For returns the To and CC lists for an entity, falling back to the file's
// default CC (then the built-in one) when the entity has no CC mapping.
func (b *Book) For(entity string) (to, cc []string) {
	to = b.To[entity]
	if cc = b.CC[entity]; cc != nil {
		return to, cc
	}
	if cc = b.CC["default"]; cc != nil {
		return to, cc
	}
	return to, DefaultCC
}

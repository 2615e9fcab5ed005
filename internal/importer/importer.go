// Package importer reads and writes record files: TOML or YAML documents
// listing subscriptions and one-time purchases.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tally/internal/core"
	"tally/internal/records"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown record file format")

// File is the document layout. In TOML the lists are arrays of tables named
// [[subscription]] and [[one_time_item]].
type File struct {
	Subscriptions []records.SubscriptionRecord `toml:"subscription" yaml:"subscriptions"`
	OneTimeItems  []records.OneTimeItemRecord  `toml:"one_time_item" yaml:"one_time_items"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (use .toml, .yaml or .yml)", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Decode reads a record file. Unknown keys are an error so that a typo in a
// field name does not silently drop data.
func Decode(r io.Reader, format Format) (File, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return File{}, fmt.Errorf("decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return File{}, fmt.Errorf("decode toml: unknown keys %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return f, nil
}

// Load opens path and decodes it in the format its extension names.
func Load(path string) (File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return File{}, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open record file: %w", err)
	}
	defer fh.Close()
	return Decode(fh, format)
}

// Records converts every entry, reporting all invalid entries at once.
func (f File) Records() ([]core.Subscription, []core.OneTimeItem, error) {
	var errs []error

	subs := make([]core.Subscription, 0, len(f.Subscriptions))
	for i, rec := range f.Subscriptions {
		sub, err := rec.ToCore()
		if err != nil {
			errs = append(errs, fmt.Errorf("subscription %d (%q): %w", i+1, rec.Name, err))
			continue
		}
		subs = append(subs, sub)
	}

	items := make([]core.OneTimeItem, 0, len(f.OneTimeItems))
	for i, rec := range f.OneTimeItems {
		item, err := rec.ToCore()
		if err != nil {
			errs = append(errs, fmt.Errorf("one-time item %d (%q): %w", i+1, rec.Name, err))
			continue
		}
		items = append(items, item)
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return subs, items, nil
}

// FileFrom builds a document from stored records.
func FileFrom(subs []core.Subscription, items []core.OneTimeItem) File {
	f := File{
		Subscriptions: make([]records.SubscriptionRecord, 0, len(subs)),
		OneTimeItems:  make([]records.OneTimeItemRecord, 0, len(items)),
	}
	for _, s := range subs {
		f.Subscriptions = append(f.Subscriptions, records.SubscriptionRecordFrom(s))
	}
	for _, o := range items {
		f.OneTimeItems = append(f.OneTimeItems, records.OneTimeItemRecordFrom(o))
	}
	return f
}

// Encode writes f in the given format.
func Encode(w io.Writer, format Format, f File) error {
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(f); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}

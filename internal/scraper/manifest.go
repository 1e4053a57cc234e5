package scraper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Manifest lists the article ids to fetch for every style, in order.
type Manifest struct {
	Styles []StyleIDs `yaml:"styles"`
}

type StyleIDs struct {
	Style string   `yaml:"style"`
	IDs   []string `yaml:"ids"`
}

func (m Manifest) Count() int {
	n := 0
	for _, s := range m.Styles {
		n += len(s.IDs)
	}
	return n
}

const defaultManifest = `
styles:
  - style: đời sống
    ids: ["4946014", "4933833", "4925297", "4933950", "4933666", "4933957", "4934213", "4934222", "4934307", "4933946", "4934039", "4934121", "4934718", "4934499", "4934631", "4934563", "4927471"]
  - style: du lịch
    ids: ["4934688", "4934446", "4934516", "4934125", "4933860", "4934570", "4926775", "4935138", "4934912", "4934909", "4934787", "4934782", "4931854", "4935002", "4934764"]
  - style: khoa học công nghệ
    ids: ["4934387", "4934403", "4935226", "4935205", "4934918", "4933963", "4934003", "4933925", "4932604", "4934068"]
`

func DefaultManifest() Manifest {
	m, err := ParseManifest([]byte(defaultManifest))
	if err != nil {
		panic(fmt.Sprintf("invalid default manifest: %v", err))
	}
	return m
}

func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("error parsing manifest: %w", err)
	}
	for i, s := range m.Styles {
		if s.Style == "" {
			return Manifest{}, fmt.Errorf("manifest entry %d has no style", i)
		}
	}
	return m, nil
}

// LoadManifest reads a manifest file, or returns the default manifest when
// path is empty.
func LoadManifest(path string) (Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("error reading manifest: %w", err)
	}
	return ParseManifest(data)
}

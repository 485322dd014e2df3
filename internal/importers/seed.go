package importers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// SeedFile is the on-disk pack seed format. Comments and trailing commas are
// allowed on import; export writes plain JSON.
type SeedFile struct {
	Version int       `json:"version"`
	Packs   []RawPack `json:"packs"`
}

// SeedVersion is the current seed file version.
const SeedVersion = 1

// SeedConverter serves packs decoded from a seed file.
type SeedConverter struct {
	packs []RawPack
	path  string
}

// ParseSeed decodes a JSONC seed document.
func ParseSeed(data []byte) (*SeedConverter, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(standardized, &seed); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	if seed.Version != 0 && seed.Version != SeedVersion {
		return nil, fmt.Errorf("unsupported seed version %d", seed.Version)
	}
	return &SeedConverter{packs: seed.Packs}, nil
}

// LoadSeedFile reads and decodes a seed file.
func LoadSeedFile(path string) (*SeedConverter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	conv, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	conv.path = path
	return conv, nil
}

func (c *SeedConverter) Convert() ([]RawPack, Source) {
	return c.packs, Source{Name: "seed", FilePath: c.path}
}

var _ Converter = (*SeedConverter)(nil)

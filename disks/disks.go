// Package disks holds named disk geometry profiles: predefined
// (BlockSize, NumBlocks) pairs a caller can select instead of hand-typing
// the numbers every time a disk is created.
package disks

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Profile is one named geometry: the block payload size in bytes and the
// total number of blocks in the data area. Both values become part of the
// on-disk format contract the moment a disk is formatted with them.
type Profile struct {
	Slug      string `csv:"slug"`
	Name      string `csv:"name"`
	BlockSize int    `csv:"block_size"`
	NumBlocks int    `csv:"num_blocks"`
	Notes     string `csv:"notes"`
}

// TotalSizeBytes is the minimum backing-file size a disk formatted with
// this profile requires: header + bitmap + data area.
func (p Profile) TotalSizeBytes() int64 {
	bitmapBytes := (p.NumBlocks + 7) / 8
	return int64(12 + bitmapBytes + p.NumBlocks*p.BlockSize)
}

//go:embed profiles.csv
var rawProfilesCSV string

var profiles map[string]Profile

func init() {
	profiles = make(map[string]Profile)
	err := gocsv.UnmarshalToCallback(
		strings.NewReader(rawProfilesCSV),
		func(row Profile) error {
			if _, exists := profiles[row.Slug]; exists {
				return fmt.Errorf("duplicate disk profile slug %q", row.Slug)
			}
			profiles[row.Slug] = row
			return nil
		},
	)
	if err != nil {
		panic(err)
	}
}

// Get returns the predefined profile registered under slug.
func Get(slug string) (Profile, error) {
	profile, ok := profiles[slug]
	if !ok {
		return Profile{}, fmt.Errorf("no predefined disk profile with slug %q", slug)
	}
	return profile, nil
}

// Names returns the slugs of every predefined profile, in no particular
// order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for slug := range profiles {
		names = append(names, slug)
	}
	return names
}

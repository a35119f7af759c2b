package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Data is everything the startup path loads from the data directory.
// Defaulted lists the files that were missing and replaced by seed values, so
// the caller can log them.
type Data struct {
	Profile   Profile
	Products  []Product
	Staff     []StaffMember
	Defaulted []string
}

// Load reads description.json, products.json and staff.json from dir. A
// missing file falls back to its seed default; a file that exists but does
// not parse is an error.
func Load(dir string) (Data, error) {
	data := Data{
		Profile:  DefaultProfile(),
		Products: SeedProducts(),
		Staff:    []StaffMember{},
	}

	if err := loadFile(dir, "description.json", &data.Profile, &data); err != nil {
		return Data{}, err
	}
	if err := loadFile(dir, "products.json", &data.Products, &data); err != nil {
		return Data{}, err
	}
	if err := loadFile(dir, "staff.json", &data.Staff, &data); err != nil {
		return Data{}, err
	}
	return data, nil
}

func loadFile(dir, name string, out any, data *Data) error {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		data.Defaulted = append(data.Defaulted, name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SampleDocuments are the placeholder names Seed creates.
var SampleDocuments = []string{
	"waste_invoice_20241215.pdf",
	"collecct_data_batch_5.xlsx",
	"avfall_rapport_20241214.pdf",
	"waste_report_finland.xlsx",
	"invoice_norway_20241213.pdf",
}

// Seed creates empty placeholder documents in the source collection. Existing
// files are left alone. Returns the names actually created.
func (s *Store) Seed(names []string) ([]string, error) {
	if len(names) == 0 {
		names = SampleDocuments
	}
	var created []string
	for _, name := range names {
		path, err := s.sourcePath(name)
		if err != nil {
			return created, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.filePerm)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return created, fmt.Errorf("storage.fs.Seed: %w", err)
		}
		_ = f.Close()
		created = append(created, name)
		s.logger.Info("created sample file", "name", name)
	}
	s.logger.Info("seeded sample files", "created", len(created), "drop_dir", filepath.Clean(s.SourceDir()))
	return created, nil
}

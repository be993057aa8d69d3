package pipeline

import (
	"path/filepath"

	"github.com/ifukit/spaxelpipe/internal/cosmo"
	"github.com/ifukit/spaxelpipe/internal/ingest"
	"github.com/ifukit/spaxelpipe/internal/survey"
)

// Source provides the survey inputs: the galaxy catalogue and the
// per-galaxy map products. Implemented by FileSource for on-disk surveys
// and by synthetic fixtures in tests.
type Source interface {
	Catalogue() ([]ingest.Galaxy, error)
	Products(galaxy string, scheme survey.BinScheme, model survey.ComponentModel) (*ingest.ProductSet, error)
}

// FileSource reads survey inputs from the configured input directory:
// the catalogue from <input>/catalogue.csv and the map products from
// <input>/ifs/<galaxy>/.
type FileSource struct {
	Config survey.Config
}

func (s FileSource) Catalogue() ([]ingest.Galaxy, error) {
	c := cosmo.FlatLambdaCDM{H0: s.Config.H0, Om0: s.Config.Om0}
	return ingest.ReadCatalogueFile(filepath.Join(s.Config.InputPath, "catalogue.csv"), c)
}

func (s FileSource) Products(galaxy string, scheme survey.BinScheme, model survey.ComponentModel) (*ingest.ProductSet, error) {
	return ingest.LoadProducts(s.Config, galaxy, scheme, model)
}

package loader

import (
	"github.com/sirupsen/logrus"

	"github.com/zalepa/crashmap/crash"
)

// Sources names the files a dataset is built from.
type Sources struct {
	CrashesPath    string
	BoundariesPath string
	AreaProperty   string
	AreaColumn     string
}

// Load reads the boundary names and crash records and builds the dataset.
// Record area names that match no boundary are logged once each.
func Load(src Sources, log *logrus.Entry) (*crash.Dataset, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	names, err := LoadAreaNames(src.BoundariesPath, src.AreaProperty)
	if err != nil {
		return nil, err
	}
	records, err := LoadRecords(src.CrashesPath, src.AreaColumn)
	if err != nil {
		return nil, err
	}

	ds := crash.NewDataset(records, names)
	unmatched := ds.Unmatched()
	for _, name := range ds.UnmatchedNames() {
		log.WithFields(logrus.Fields{"area": name, "records": unmatched[name]}).
			Warn("area not found in boundaries")
	}
	log.WithFields(logrus.Fields{
		"records": ds.Len(),
		"areas":   len(ds.Areas()),
	}).Info("dataset loaded")
	return ds, nil
}

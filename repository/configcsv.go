package repository

import (
	"encoding/csv"
	"os"

	"github.com/kwinsch/historify/herrors"
)

// readConfigCSV reads db/config.csv's key,value rows directly. The
// category registry needs to enumerate keys by prefix, which config.Store's
// single-key Get/Set surface does not support.
func readConfigCSV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, herrors.Wrapf(herrors.KindIO, err, "opening %s", path)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", path)
	}
	out := map[string]string{}
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue
		}
		out[rec[0]] = rec[1]
	}
	return out, nil
}

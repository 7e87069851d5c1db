package scanner

import (
	"os"

	"github.com/h2non/filetype"
)

// ContentTypeCounts walks dataPath and tallies detected content kinds (sniffed
// from each file's leading bytes, counted under the kind's usual extension),
// for status reporting only — it is never written to a changelog row and
// does not affect classification.
func ContentTypeCounts(dataPath string) (map[string]int, error) {
	counts := map[string]int{}
	files, err := listRegularFiles(dataPath)
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		head := make([]byte, 261) // filetype needs at most the first 261 bytes
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		n, _ := f.Read(head)
		f.Close()

		kind, err := filetype.Match(head[:n])
		if err != nil || kind == filetype.Unknown {
			counts["unknown"]++
			continue
		}
		counts[kind.Extension]++
	}
	return counts, nil
}

func listRegularFiles(root string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		full := root + "/" + e.Name()
		if e.IsDir() {
			sub, err := listRegularFiles(full)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if e.Type().IsRegular() {
			out = append(out, full)
		}
	}
	return out, nil
}

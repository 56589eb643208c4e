package minibatch

import (
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads a dataset from CSV data with a header row. Features are
// read from featureColumns in the given order and the integer class
// label from labelColumn. The number of classes is one more than the
// largest label seen.
func LoadCSV(r io.Reader, featureColumns []string,
	labelColumn string) (*mat.Dense, []int, int, error) {
	if len(featureColumns) == 0 {
		return nil, nil, 0, errors.New("loadCSV: no feature columns given")
	}

	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "loadCSV: unable to read csv")
	}
	if len(rows) == 0 {
		return nil, nil, 0, errors.New("loadCSV: csv has no samples")
	}

	data := make([]float64, 0, len(rows)*len(featureColumns))
	labels := make([]int, len(rows))
	classes := 0
	for i, row := range rows {
		for _, col := range featureColumns {
			raw, ok := row[col]
			if !ok {
				return nil, nil, 0, errors.Errorf("loadCSV: missing feature "+
					"column %q", col)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, nil, 0, errors.Wrapf(err, "loadCSV: row %d "+
					"column %q", i+1, col)
			}
			data = append(data, v)
		}

		raw, ok := row[labelColumn]
		if !ok {
			return nil, nil, 0, errors.Errorf("loadCSV: missing label "+
				"column %q", labelColumn)
		}
		label, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, 0, errors.Wrapf(err, "loadCSV: row %d label",
				i+1)
		}
		if label < 0 {
			return nil, nil, 0, errors.Errorf("loadCSV: row %d has negative "+
				"label %d", i+1, label)
		}
		labels[i] = label
		if label+1 > classes {
			classes = label + 1
		}
	}

	features := mat.NewDense(len(rows), len(featureColumns), data)
	return features, labels, classes, nil
}

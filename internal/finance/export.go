package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"kellyBotTrade/internal/kelly"
)

// csvPlaces is the number of decimals written for wealth values.
const csvPlaces = 6

var trajectoryHeader = []string{"timestamp", "all_in", "kelly", "rank", "edge", "fraction", "realized"}

// WriteTrajectoryCSV writes one row per observation. The step columns of row k
// describe the transition from k-1 to k and are empty on the first row.
func WriteTrajectoryCSV(w io.Writer, res *kelly.Result) error {
	if res == nil || len(res.AllIn) != len(res.Kelly) {
		return fmt.Errorf("trajectories are missing or misaligned")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(trajectoryHeader); err != nil {
		return err
	}
	for i := range res.AllIn {
		row := []string{
			strconv.FormatInt(res.AllIn[i].Timestamp, 10),
			formatDecimal(res.AllIn[i].Value, csvPlaces),
			formatDecimal(res.Kelly[i].Value, csvPlaces),
			"", "", "", "",
		}
		if i > 0 && i-1 < len(res.Steps) {
			st := res.Steps[i-1]
			row[3] = strconv.Itoa(st.Rank)
			row[4] = formatDecimal(st.Edge, 8)
			row[5] = formatDecimal(st.Fraction, 4)
			row[6] = formatDecimal(st.Realized, 8)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDecimal(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

// ReadObservationsCSV parses "timestamp,price" rows. A header row is skipped
// when its first field is not a number.
func ReadObservationsCSV(r io.Reader) ([]kelly.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	out := make([]kelly.Observation, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want timestamp,price", i+1)
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad timestamp %q: %w", i+1, rec[0], err)
		}
		price, err := decimal.NewFromString(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q: %w", i+1, rec[1], err)
		}
		out = append(out, kelly.Observation{Timestamp: ts, Price: price.InexactFloat64()})
	}
	return out, nil
}

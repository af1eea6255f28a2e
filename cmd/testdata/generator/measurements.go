package generator

import (
	"fmt"
	"io"
	"math/rand/v2"
)

type station struct {
	name string
	mean float64
}

var stations = []station{
	{"Abha", 18.0}, {"Abidjan", 26.0}, {"Accra", 26.4}, {"Addis Ababa", 16.0},
	{"Adelaide", 17.3}, {"Alexandria", 20.0}, {"Anchorage", 2.8}, {"Athens", 19.2},
	{"Bangkok", 28.6}, {"Bulawayo", 18.9}, {"Cairo", 21.4}, {"Dakar", 24.0},
	{"Dikson", -11.1}, {"Hamburg", 9.7}, {"Istanbul", 13.9}, {"Jakarta", 26.7},
	{"Kyiv", 8.4}, {"Lhasa", 7.6}, {"Palembang", 27.3}, {"Reykjavík", 4.3},
	{"São Paulo", 19.7}, {"St. John's", 5.0}, {"Tromsø", 2.9}, {"Yakutsk", -8.8},
	{"Zürich", 9.3},
}

var malformed = []string{
	"",
	"   ",
	"BAD_LINE",
	"Hamburg;",
	"Hamburg;warm",
	"Hamburg;12.3;4",
	";",
}

// MeasurementGenerator writes `station;temperature` lines. With a positive
// MalformedRate that fraction of lines is replaced by lines the pipeline
// must drop.
type MeasurementGenerator struct {
	Stations      int
	MalformedRate float64
	rand          *rand.Rand
}

func (g *MeasurementGenerator) Init(r *rand.Rand) {
	g.rand = r
}

func (g *MeasurementGenerator) WriteLine(w io.Writer) error {
	if g.MalformedRate > 0 && g.rand.Float64() < g.MalformedRate {
		_, err := fmt.Fprintln(w, malformed[g.rand.IntN(len(malformed))])
		return err
	}

	n := g.Stations
	if n <= 0 || n > len(stations) {
		n = len(stations)
	}
	s := stations[g.rand.IntN(n)]
	temp := s.mean + g.rand.NormFloat64()*10
	temp = max(-99.9, min(99.9, temp))

	_, err := fmt.Fprintf(w, "%s;%.1f\n", s.name, temp)
	return err
}

func (g *MeasurementGenerator) Description() string {
	if g.MalformedRate > 0 {
		return fmt.Sprintf("station;temperature with %.0f%% malformed lines", g.MalformedRate*100)
	}
	return "station;temperature"
}

func (g *MeasurementGenerator) DefaultCount() int64 {
	return 1e6
}
